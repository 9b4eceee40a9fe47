package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath/billing/internal/domain/claims"
	"github.com/brightpath/billing/internal/platform/auth"
	"github.com/brightpath/billing/internal/platform/db"
	"github.com/brightpath/billing/internal/platform/x12"
)

// ErrVoidNotAllowed is returned when a posting cannot be voided: it is
// already voided, or it is itself a reversal.
var ErrVoidNotAllowed = errors.New("payment posting cannot be voided")

// ClaimStore is the slice of the claim repository payment posting needs
// to keep claim statuses in step with the ledger.
type ClaimStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*claims.Claim, error)
	GetByClaimNumber(ctx context.Context, claimNumber string) (*claims.Claim, error)
	Update(ctx context.Context, c *claims.Claim) error
	AddActivity(ctx context.Context, a *claims.ClaimActivity) error
}

type Service struct {
	payments PaymentRepository
	deposits BatchDepositRepository
	era      ERARepository
	claims   ClaimStore
	parser   x12.RemittanceParser
	pool     *pgxpool.Pool
	now      func() time.Time
}

func NewService(payments PaymentRepository, deposits BatchDepositRepository, era ERARepository,
	claimStore ClaimStore, parser x12.RemittanceParser, pool *pgxpool.Pool) *Service {
	return &Service{
		payments: payments,
		deposits: deposits,
		era:      era,
		claims:   claimStore,
		parser:   parser,
		pool:     pool,
		now:      time.Now,
	}
}

func (s *Service) withTx(ctx context.Context, fn func(context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

var validPostingTypes = map[string]bool{
	TypeInsurance:  true,
	TypePatient:    true,
	TypeAdjustment: true,
}

// Post writes one ledger entry and brings the linked claim's status back
// in line with its balance. Adjustments are always stored negative,
// whatever sign the caller sent.
func (s *Service) Post(ctx context.Context, p *PaymentPosting) error {
	if !validPostingTypes[p.Type] {
		return fmt.Errorf("invalid posting type: %s", p.Type)
	}
	if p.Amount == 0 {
		return fmt.Errorf("amount cannot be zero")
	}
	if p.Type == TypeAdjustment && p.Amount > 0 {
		p.Amount = -p.Amount
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = s.now()
	}
	p.Status = StatusPosted

	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.payments.Create(ctx, p); err != nil {
			return fmt.Errorf("create posting: %w", err)
		}
		if p.BatchDepositID != nil {
			if err := s.deposits.Recompute(ctx, *p.BatchDepositID); err != nil {
				return fmt.Errorf("recompute deposit: %w", err)
			}
		}
		if p.ClaimID != nil {
			if err := s.reconcileClaim(ctx, *p.ClaimID,
				fmt.Sprintf("%s payment of %.2f posted", p.Type, p.Amount)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Void flags a posting and writes the opposite-amount reversal row. The
// original and its reversal stay in the ledger; the claim balance is
// recomputed from what remains posted.
func (s *Service) Void(ctx context.Context, id uuid.UUID, reason string) error {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == StatusVoided || p.Type == TypeReversal {
		return ErrVoidNotAllowed
	}
	if reason == "" {
		return fmt.Errorf("void reason is required")
	}

	actor := actorFromContext(ctx)
	now := s.now()
	return s.withTx(ctx, func(ctx context.Context) error {
		p.Status = StatusVoided
		p.VoidReason = &reason
		p.VoidedBy = &actor
		p.VoidedAt = &now
		if err := s.payments.Update(ctx, p); err != nil {
			return fmt.Errorf("void posting: %w", err)
		}

		reversal := &PaymentPosting{
			ClaimID:      p.ClaimID,
			PaymentDate:  now,
			Amount:       -p.Amount,
			Type:         TypeReversal,
			CheckNumber:  p.CheckNumber,
			ERANumber:    p.ERANumber,
			Status:       StatusPosted,
			ReversalOfID: &p.ID,
		}
		if err := s.payments.Create(ctx, reversal); err != nil {
			return fmt.Errorf("create reversal: %w", err)
		}

		if p.BatchDepositID != nil {
			if err := s.deposits.Recompute(ctx, *p.BatchDepositID); err != nil {
				return fmt.Errorf("recompute deposit: %w", err)
			}
		}
		if p.ClaimID != nil {
			if err := s.reconcileClaim(ctx, *p.ClaimID,
				fmt.Sprintf("payment of %.2f voided: %s", p.Amount, reason)); err != nil {
				return err
			}
		}
		return nil
	})
}

// reconcileClaim rewrites the claim status from its posted balance:
// paid when nothing is left, partially_paid when some money landed,
// submitted otherwise.
func (s *Service) reconcileClaim(ctx context.Context, claimID uuid.UUID, activity string) error {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	paid, err := s.payments.SumPostedByClaim(ctx, claimID)
	if err != nil {
		return fmt.Errorf("sum postings: %w", err)
	}

	balance := claim.TotalAmount - paid
	switch {
	case balance <= 0.005:
		claim.Status = claims.StatusPaid
	case paid > 0:
		claim.Status = claims.StatusPartiallyPaid
	default:
		claim.Status = claims.StatusSubmitted
	}
	if err := s.claims.Update(ctx, claim); err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return s.claims.AddActivity(ctx, &claims.ClaimActivity{
		ClaimID:     claim.ID,
		Type:        "payment",
		Description: fmt.Sprintf("%s; balance %.2f, status %s", activity, balance, claim.Status),
		Actor:       actorFromContext(ctx),
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PaymentPosting, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*PaymentPosting, int, error) {
	return s.payments.Search(ctx, params, limit, offset)
}

func (s *Service) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*PaymentPosting, error) {
	return s.payments.ListByClaim(ctx, claimID)
}

// --- Batch deposits ---

func (s *Service) CreateDeposit(ctx context.Context, b *BatchDeposit) error {
	if b.BankReference == "" {
		return fmt.Errorf("bank_reference is required")
	}
	if b.DepositDate.IsZero() {
		b.DepositDate = s.now()
	}
	return s.deposits.Create(ctx, b)
}

func (s *Service) GetDeposit(ctx context.Context, id uuid.UUID) (*BatchDeposit, error) {
	return s.deposits.GetByID(ctx, id)
}

func (s *Service) UpdateDeposit(ctx context.Context, b *BatchDeposit) error {
	if b.BankReference == "" {
		return fmt.Errorf("bank_reference is required")
	}
	return s.deposits.Update(ctx, b)
}

func (s *Service) DeleteDeposit(ctx context.Context, id uuid.UUID) error {
	b, err := s.deposits.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.PostingCount > 0 {
		return fmt.Errorf("deposit %s has linked postings and cannot be deleted", b.BankReference)
	}
	return s.deposits.Delete(ctx, id)
}

func (s *Service) ListDeposits(ctx context.Context, limit, offset int) ([]*BatchDeposit, int, error) {
	return s.deposits.List(ctx, limit, offset)
}

func actorFromContext(ctx context.Context) string {
	if name := auth.UserNameFromContext(ctx); name != "" {
		return name
	}
	if id := auth.UserIDFromContext(ctx); id != "" {
		return id
	}
	return "system"
}
