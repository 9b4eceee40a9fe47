package denials

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
)

// ErrDenialResolved is returned for any mutation against a resolved
// denial. Resolved is terminal.
var ErrDenialResolved = errors.New("denial is resolved")

// ErrAppealPending is returned when a new appeal is filed while the last
// one is still in flight.
var ErrAppealPending = errors.New("an appeal is already pending on this denial")

// ErrClaimNotSubmitted is returned when a denial is recorded against a
// claim the payer never received.
var ErrClaimNotSubmitted = errors.New("claim has not been submitted to the payer")

// appealDeadlineDays is the default filing window when intake does not
// state one.
const appealDeadlineDays = 30

// ClaimStore is the slice of the claim repository denial intake needs to
// flip the claim over to denied.
type ClaimStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*claims.Claim, error)
	Update(ctx context.Context, c *claims.Claim) error
	AddActivity(ctx context.Context, a *claims.ClaimActivity) error
}

var validDenialStatuses = map[string]bool{
	StatusPending:     true,
	StatusInProgress:  true,
	StatusAppealed:    true,
	StatusResubmitted: true,
	StatusEscalated:   true,
	StatusResolved:    true,
}

var validPriorities = map[string]bool{
	PriorityHigh:   true,
	PriorityMedium: true,
	PriorityLow:    true,
}

type Service struct {
	denials DenialRepository
	appeals AppealRepository
	tasks   TaskRepository
	claims  ClaimStore
	pool    *pgxpool.Pool
	now     func() time.Time
}

func NewService(denials DenialRepository, appeals AppealRepository, tasks TaskRepository,
	claimStore ClaimStore, pool *pgxpool.Pool) *Service {
	return &Service{
		denials: denials,
		appeals: appeals,
		tasks:   tasks,
		claims:  claimStore,
		pool:    pool,
		now:     time.Now,
	}
}

func (s *Service) withTx(ctx context.Context, fn func(context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

// Intake records a payer denial and flips the claim to denied. Only
// claims the payer has actually adjudicated qualify. The appeal deadline
// defaults to thirty days out when the payer did not state one.
func (s *Service) Intake(ctx context.Context, d *Denial) error {
	claim, err := s.claims.GetByID(ctx, d.ClaimID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if claim.Status != claims.StatusSubmitted && claim.Status != claims.StatusPartiallyPaid {
		return ErrClaimNotSubmitted
	}
	if d.DenialCode == "" {
		return fmt.Errorf("denial_code is required")
	}
	if d.ClientID == uuid.Nil {
		d.ClientID = claim.ClientID
	}
	if d.Amount == 0 {
		d.Amount = claim.TotalAmount
	}
	d.Status = StatusPending
	if d.AppealDeadline == nil {
		deadline := s.now().AddDate(0, 0, appealDeadlineDays)
		d.AppealDeadline = &deadline
	}

	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.denials.Create(ctx, d); err != nil {
			return fmt.Errorf("create denial: %w", err)
		}
		claim.Status = claims.StatusDenied
		if err := s.claims.Update(ctx, claim); err != nil {
			return fmt.Errorf("update claim: %w", err)
		}
		if err := s.claims.AddActivity(ctx, &claims.ClaimActivity{
			ClaimID:     claim.ID,
			Type:        "denied",
			Description: fmt.Sprintf("denied by payer: %s %s", d.DenialCode, d.DenialReason),
			Actor:       actorFromContext(ctx),
		}); err != nil {
			return err
		}
		return s.recordActivity(ctx, d.ID, "created",
			fmt.Sprintf("denial recorded for claim %s (%s)", claim.ClaimNumber, d.DenialCode))
	})
}

// rejectionDenialCode labels denials opened from clearinghouse
// rejections rather than payer remittance codes.
const rejectionDenialCode = "CH-REJECT"

// RecordRejection opens a pending denial for a claim the clearinghouse
// refused. Unlike Intake the claim keeps its status: it was never
// accepted for adjudication, so it stays pending for correction and
// resubmission.
func (s *Service) RecordRejection(ctx context.Context, claimID uuid.UUID, reason string) error {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	deadline := s.now().AddDate(0, 0, appealDeadlineDays)
	d := &Denial{
		ClaimID:        claim.ID,
		ClientID:       claim.ClientID,
		DenialCode:     rejectionDenialCode,
		DenialReason:   reason,
		Amount:         claim.TotalAmount,
		Status:         StatusPending,
		AppealDeadline: &deadline,
	}
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.denials.Create(ctx, d); err != nil {
			return fmt.Errorf("create denial: %w", err)
		}
		return s.recordActivity(ctx, d.ID, "created",
			fmt.Sprintf("opened from clearinghouse rejection of claim %s: %s", claim.ClaimNumber, reason))
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*WorklistItem, error) {
	d, err := s.denials.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.worklistItems(ctx, []*Denial{d})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

func (s *Service) List(ctx context.Context, params map[string]string, limit, offset int) ([]*WorklistItem, int, error) {
	items, total, err := s.denials.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.worklistItems(ctx, items)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ExportWorklist returns every matching denial for the CSV download.
func (s *Service) ExportWorklist(ctx context.Context, params map[string]string) ([]*WorklistItem, error) {
	items, err := s.denials.ListAll(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.worklistItems(ctx, items)
}

// worklistItems joins the business claim number onto each denial; the
// export must show the same claim numbers as the worklist query.
func (s *Service) worklistItems(ctx context.Context, ds []*Denial) ([]*WorklistItem, error) {
	numbers := make(map[uuid.UUID]string)
	out := make([]*WorklistItem, len(ds))
	for i, d := range ds {
		num, ok := numbers[d.ClaimID]
		if !ok {
			c, err := s.claims.GetByID(ctx, d.ClaimID)
			if err != nil {
				return nil, fmt.Errorf("load claim for denial %s: %w", d.ID, err)
			}
			num = c.ClaimNumber
			numbers[d.ClaimID] = num
		}
		out[i] = &WorklistItem{Denial: d, ClaimNumber: num, ComputedPriority: d.ComputedPriority(s.now())}
	}
	return out, nil
}

func (s *Service) ListActivities(ctx context.Context, denialID uuid.UUID) ([]*DenialActivity, error) {
	return s.denials.ListActivities(ctx, denialID)
}

// loadOpen returns the denial or ErrDenialResolved; every mutation goes
// through it.
func (s *Service) loadOpen(ctx context.Context, id uuid.UUID) (*Denial, error) {
	d, err := s.denials.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusResolved {
		return nil, ErrDenialResolved
	}
	return d, nil
}

func (s *Service) Assign(ctx context.Context, id uuid.UUID, assignee string) error {
	if assignee == "" {
		return fmt.Errorf("assignee is required")
	}
	d, err := s.loadOpen(ctx, id)
	if err != nil {
		return err
	}
	d.AssignedTo = &assignee
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.denials.Update(ctx, d); err != nil {
			return err
		}
		return s.recordActivity(ctx, d.ID, "assigned", fmt.Sprintf("assigned to %s", assignee))
	})
}

// BulkAssignResult reports a bulk assignment pass. Resolved denials are
// skipped, not failed.
type BulkAssignResult struct {
	Assigned int `json:"assigned"`
	Skipped  int `json:"skipped"`
}

func (s *Service) AssignBulk(ctx context.Context, ids []uuid.UUID, assignee string) (*BulkAssignResult, error) {
	if assignee == "" {
		return nil, fmt.Errorf("assignee is required")
	}
	result := &BulkAssignResult{}
	for _, id := range ids {
		err := s.Assign(ctx, id, assignee)
		switch {
		case errors.Is(err, ErrDenialResolved):
			result.Skipped++
		case err != nil:
			return nil, err
		default:
			result.Assigned++
		}
	}
	return result, nil
}

// SetStatus moves a denial between working states. Resolved is reached
// only through Resolve.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validDenialStatuses[status] || status == StatusResolved {
		return fmt.Errorf("invalid denial status: %s", status)
	}
	d, err := s.loadOpen(ctx, id)
	if err != nil {
		return err
	}
	old := d.Status
	d.Status = status
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.denials.Update(ctx, d); err != nil {
			return err
		}
		return s.recordActivity(ctx, d.ID, "status_changed", fmt.Sprintf("status %s -> %s", old, status))
	})
}

func (s *Service) SetPriority(ctx context.Context, id uuid.UUID, priority string) error {
	if !validPriorities[priority] {
		return fmt.Errorf("invalid priority: %s", priority)
	}
	d, err := s.loadOpen(ctx, id)
	if err != nil {
		return err
	}
	d.AssignedPriority = &priority
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.denials.Update(ctx, d); err != nil {
			return err
		}
		return s.recordActivity(ctx, d.ID, "priority_changed", fmt.Sprintf("priority set to %s", priority))
	})
}

// Escalate hands the denial to an admin at high priority.
func (s *Service) Escalate(ctx context.Context, id uuid.UUID, adminAssignee string) error {
	if adminAssignee == "" {
		return fmt.Errorf("assignee is required")
	}
	d, err := s.loadOpen(ctx, id)
	if err != nil {
		return err
	}
	high := PriorityHigh
	d.AssignedTo = &adminAssignee
	d.AssignedPriority = &high
	d.Status = StatusEscalated
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.denials.Update(ctx, d); err != nil {
			return err
		}
		return s.recordActivity(ctx, d.ID, "escalated", fmt.Sprintf("escalated to %s", adminAssignee))
	})
}

// --- Tasks ---

func (s *Service) CreateTask(ctx context.Context, t *DenialTask) error {
	if t.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := s.loadOpen(ctx, t.DenialID); err != nil {
		return err
	}
	t.Status = TaskPending
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.tasks.Create(ctx, t); err != nil {
			return err
		}
		return s.recordActivity(ctx, t.DenialID, "task_created", fmt.Sprintf("task added: %s", t.Description))
	})
}

func (s *Service) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Status == TaskCompleted {
		return fmt.Errorf("task is already completed")
	}
	now := s.now()
	t.Status = TaskCompleted
	t.CompletedAt = &now
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.tasks.Update(ctx, t); err != nil {
			return err
		}
		return s.recordActivity(ctx, t.DenialID, "task_completed", fmt.Sprintf("task completed: %s", t.Description))
	})
}

func (s *Service) ListTasks(ctx context.Context, denialID uuid.UUID) ([]*DenialTask, error) {
	return s.tasks.ListByDenial(ctx, denialID)
}

// --- Appeals ---

// FileAppeal opens a formal appeal. Appeals are strictly sequential: a
// denial that is resolved, already appealed, or carrying a submitted
// appeal status cannot take another.
func (s *Service) FileAppeal(ctx context.Context, a *Appeal) error {
	if a.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	d, err := s.denials.GetByID(ctx, a.DenialID)
	if err != nil {
		return err
	}
	if d.Status == StatusResolved {
		return ErrDenialResolved
	}
	if d.Status == StatusAppealed || (d.AppealStatus != nil && *d.AppealStatus == AppealSubmitted) {
		return ErrAppealPending
	}

	a.Status = AppealSubmitted
	submitted := AppealSubmitted
	d.Status = StatusAppealed
	d.AppealStatus = &submitted
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.appeals.Create(ctx, a); err != nil {
			return fmt.Errorf("create appeal: %w", err)
		}
		if err := s.denials.Update(ctx, d); err != nil {
			return err
		}
		return s.recordActivity(ctx, d.ID, "appeal_filed", fmt.Sprintf("%s appeal filed: %s", a.AppealType, a.Reason))
	})
}

// RecordAppealResponse records the payer's answer and mirrors it onto
// the denial's appeal status.
func (s *Service) RecordAppealResponse(ctx context.Context, appealID uuid.UUID, status string, notes *string, amount *float64) (*Appeal, error) {
	if status != AppealApproved && status != AppealDenied {
		return nil, fmt.Errorf("invalid appeal response status: %s", status)
	}
	a, err := s.appeals.GetByID(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if a.Status != AppealSubmitted && a.Status != AppealPending {
		return nil, fmt.Errorf("appeal already has a %s response", a.Status)
	}
	d, err := s.denials.GetByID(ctx, a.DenialID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a.Status = status
	a.ResponseNotes = notes
	a.ResponseAmount = amount
	a.RespondedAt = &now
	d.AppealStatus = &status
	err = s.withTx(ctx, func(ctx context.Context) error {
		if err := s.appeals.Update(ctx, a); err != nil {
			return err
		}
		if err := s.denials.Update(ctx, d); err != nil {
			return err
		}
		return s.recordActivity(ctx, d.ID, "appeal_response", fmt.Sprintf("appeal %s", status))
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListAppeals(ctx context.Context, denialID uuid.UUID) ([]*Appeal, error) {
	return s.appeals.ListByDenial(ctx, denialID)
}

// --- Resolution ---

// Resolve closes the denial for good and completes whatever tasks are
// still pending on it.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, resolutionType string, amount *float64, notes *string) error {
	if resolutionType == "" {
		return fmt.Errorf("resolution_type is required")
	}
	d, err := s.loadOpen(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	d.Status = StatusResolved
	d.ResolutionType = &resolutionType
	d.ResolutionAmount = amount
	d.ResolutionNotes = notes
	d.ResolvedAt = &now
	return s.withTx(ctx, func(ctx context.Context) error {
		if err := s.denials.Update(ctx, d); err != nil {
			return err
		}
		pending, err := s.tasks.ListPendingByDenial(ctx, d.ID)
		if err != nil {
			return err
		}
		for _, t := range pending {
			t.Status = TaskCompleted
			t.CompletedAt = &now
			if err := s.tasks.Update(ctx, t); err != nil {
				return err
			}
		}
		return s.recordActivity(ctx, d.ID, "resolved",
			fmt.Sprintf("resolved as %s; %d open tasks closed", resolutionType, len(pending)))
	})
}

func (s *Service) recordActivity(ctx context.Context, denialID uuid.UUID, typ, description string) error {
	return s.denials.AddActivity(ctx, &DenialActivity{
		DenialID:    denialID,
		Type:        typ,
		Description: description,
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
