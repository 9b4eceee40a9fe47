package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath/billing/internal/domain/clients"
	"github.com/brightpath/billing/internal/platform/auth"
	"github.com/brightpath/billing/internal/platform/clearinghouse"
	"github.com/brightpath/billing/internal/platform/db"
)

// SessionStore is the slice of the session repository claim generation
// needs.
type SessionStore interface {
	ListBillable(ctx context.Context, cutoff time.Time) ([]*clients.ServiceSession, error)
	MarkBilled(ctx context.Context, sessionIDs []uuid.UUID, claimID uuid.UUID) error
	MarkUnbilled(ctx context.Context, claimID uuid.UUID) error
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*clients.ServiceSession, error)
}

// AuthorizationStore is the slice of the authorization repository claim
// generation needs.
type AuthorizationStore interface {
	FindActive(ctx context.Context, clientID uuid.UUID, serviceCode string, date time.Time) (*clients.Authorization, error)
	FindByNumber(ctx context.Context, clientID uuid.UUID, authNumber string) (*clients.Authorization, error)
	ConsumeUnits(ctx context.Context, id uuid.UUID, units int) error
	ReleaseUnits(ctx context.Context, id uuid.UUID, units int) error
}

// ClientStore resolves clients for validation and EDI building.
type ClientStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clients.Client, error)
}

// ProviderStore resolves rendering providers.
type ProviderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clients.Provider, error)
}

// DenialSink opens a denial record when the clearinghouse rejects a
// claim. Declared here so the denials package, which already depends on
// this one, can implement it without an import cycle.
type DenialSink interface {
	RecordRejection(ctx context.Context, claimID uuid.UUID, reason string) error
}

// Options carries the billing identity and policy knobs the claim
// lifecycle needs from configuration.
type Options struct {
	ClaimNumberPrefix string
	TimelyFilingDays  int
	OrganizationName  string
	BillingNPI        string
	BillingTaxID      string
	PayerID           string
	PayerName         string
}

type Service struct {
	repo     ClaimRepository
	sessions SessionStore
	auths    AuthorizationStore
	clients  ClientStore
	provs    ProviderStore
	ch       clearinghouse.Client
	denials  DenialSink
	pool     *pgxpool.Pool
	opts     Options
	now      func() time.Time
}

func NewService(repo ClaimRepository, sessions SessionStore, auths AuthorizationStore,
	clientStore ClientStore, provs ProviderStore, ch clearinghouse.Client,
	pool *pgxpool.Pool, opts Options) *Service {
	if opts.ClaimNumberPrefix == "" {
		opts.ClaimNumberPrefix = "CLM"
	}
	if opts.TimelyFilingDays <= 0 {
		opts.TimelyFilingDays = 95
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		auths:    auths,
		clients:  clientStore,
		provs:    provs,
		ch:       ch,
		pool:     pool,
		opts:     opts,
		now:      time.Now,
	}
}

// SetDenialSink wires the denial intake consulted on clearinghouse
// rejection. Set after construction because the denials service itself
// is built on top of the claim repository.
func (s *Service) SetDenialSink(d DenialSink) {
	s.denials = d
}

// withTx runs fn inside a database transaction. Tests construct the
// service without a pool and run against in-memory repositories.
func (s *Service) withTx(ctx context.Context, fn func(context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Claim, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, params map[string]string) ([]*Claim, error) {
	return s.repo.ListAll(ctx, params)
}

func (s *Service) Activities(ctx context.Context, claimID uuid.UUID) ([]*ClaimActivity, error) {
	return s.repo.ListActivities(ctx, claimID)
}

// Sessions returns the service sessions rolled into a claim.
func (s *Service) Sessions(ctx context.Context, claimID uuid.UUID) ([]*clients.ServiceSession, error) {
	return s.sessions.ListByClaim(ctx, claimID)
}

var validClaimStatuses = map[string]bool{
	StatusPending:       true,
	StatusSubmitted:     true,
	StatusPaid:          true,
	StatusPartiallyPaid: true,
	StatusDenied:        true,
}

// Update applies manual edits to a pending claim. Submitted and later
// claims are immutable outside of payment posting and denial handling.
func (s *Service) Update(ctx context.Context, c *Claim) error {
	existing, err := s.repo.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if existing.Status != StatusPending {
		return fmt.Errorf("claim %s is %s and can no longer be edited", existing.ClaimNumber, existing.Status)
	}
	if !validClaimStatuses[c.Status] {
		return fmt.Errorf("invalid claim status: %s", c.Status)
	}
	if c.Units <= 0 {
		return fmt.Errorf("units must be positive")
	}
	// Edits invalidate any earlier validation pass.
	c.ClaimNumber = existing.ClaimNumber
	c.ClientID = existing.ClientID
	c.ProviderID = existing.ProviderID
	c.Validated = false
	c.ValidatedAt = nil
	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}
	return s.recordActivity(ctx, c.ID, "edited", "claim details updated")
}

// Delete removes a pending claim, returns its sessions to the unbilled
// pool, and gives back the authorization units the generation run
// consumed so the capacity can be rebilled.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status != StatusPending {
		return fmt.Errorf("claim %s is %s and cannot be deleted", existing.ClaimNumber, existing.Status)
	}
	return s.withTx(ctx, func(ctx context.Context) error {
		if existing.AuthorizationNumber != nil {
			a, err := s.auths.FindByNumber(ctx, existing.ClientID, *existing.AuthorizationNumber)
			if err != nil {
				return fmt.Errorf("look up authorization %s: %w", *existing.AuthorizationNumber, err)
			}
			if a != nil {
				if err := s.auths.ReleaseUnits(ctx, a.ID, existing.Units); err != nil {
					return fmt.Errorf("release authorization units: %w", err)
				}
			}
		}
		if err := s.sessions.MarkUnbilled(ctx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, id)
	})
}

func (s *Service) recordActivity(ctx context.Context, claimID uuid.UUID, typ, desc string) error {
	return s.repo.AddActivity(ctx, &ClaimActivity{
		ClaimID:     claimID,
		Type:        typ,
		Description: desc,
		Actor:       actorFromContext(ctx),
	})
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
