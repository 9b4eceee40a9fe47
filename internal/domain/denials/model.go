package denials

import (
	"time"

	"github.com/google/uuid"
)

// Denial statuses. Resolved is terminal.
const (
	StatusPending     = "pending"
	StatusInProgress  = "in_progress"
	StatusAppealed    = "appealed"
	StatusResubmitted = "resubmitted"
	StatusEscalated   = "escalated"
	StatusResolved    = "resolved"
)

// Priorities, both assigned and computed.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Appeal statuses.
const (
	AppealSubmitted = "submitted"
	AppealPending   = "pending"
	AppealApproved  = "approved"
	AppealDenied    = "denied"
)

// Denial is one payer rejection against a claim. assigned_priority is
// whatever a user set; the worklist additionally derives a computed
// priority from deadline, amount, and age at read time, and the two are
// never reconciled.
type Denial struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ClaimID          uuid.UUID  `db:"claim_id" json:"claim_id"`
	ClientID         uuid.UUID  `db:"client_id" json:"client_id"`
	DenialCode       string     `db:"denial_code" json:"denial_code"`
	DenialReason     string     `db:"denial_reason" json:"denial_reason"`
	Amount           float64    `db:"amount" json:"amount"`
	Status           string     `db:"status" json:"status"`
	AssignedTo       *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedPriority *string    `db:"assigned_priority" json:"assigned_priority,omitempty"`
	AppealDeadline   *time.Time `db:"appeal_deadline" json:"appeal_deadline,omitempty"`
	AppealStatus     *string    `db:"appeal_status" json:"appeal_status,omitempty"`
	ResolutionType   *string    `db:"resolution_type" json:"resolution_type,omitempty"`
	ResolutionAmount *float64   `db:"resolution_amount" json:"resolution_amount,omitempty"`
	ResolutionNotes  *string    `db:"resolution_notes" json:"resolution_notes,omitempty"`
	ResolvedAt       *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ComputedPriority derives worklist urgency. Deadline inside a week wins,
// then dollar amount, then how long the denial has sat.
func (d *Denial) ComputedPriority(now time.Time) string {
	if d.AppealDeadline != nil && !d.AppealDeadline.After(now.AddDate(0, 0, 7)) {
		return PriorityHigh
	}
	if d.Amount > 500 {
		return PriorityHigh
	}
	if now.Sub(d.CreatedAt) > 60*24*time.Hour {
		return PriorityHigh
	}
	if d.Amount > 200 {
		return PriorityMedium
	}
	return PriorityLow
}

// WorklistItem is a denial plus its derived priority and the business
// claim number, as served by the list and export endpoints.
type WorklistItem struct {
	*Denial
	ClaimNumber      string `json:"claim_number"`
	ComputedPriority string `json:"computed_priority"`
}

// Appeal is one formal challenge to a denial. Appeals are sequential: a
// new one cannot be filed while the last is still submitted.
type Appeal struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	DenialID       uuid.UUID  `db:"denial_id" json:"denial_id"`
	AppealType     string     `db:"appeal_type" json:"appeal_type"`
	Reason         string     `db:"reason" json:"reason"`
	Contact        *string    `db:"contact" json:"contact,omitempty"`
	Status         string     `db:"status" json:"status"`
	ResponseNotes  *string    `db:"response_notes" json:"response_notes,omitempty"`
	ResponseAmount *float64   `db:"response_amount" json:"response_amount,omitempty"`
	RespondedAt    *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// DenialActivity is one append-only audit entry. Every mutating denial
// operation writes one.
type DenialActivity struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DenialID    uuid.UUID `db:"denial_id" json:"denial_id"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	Actor       string    `db:"actor" json:"actor"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Task statuses.
const (
	TaskPending   = "pending"
	TaskCompleted = "completed"
)

// DenialTask is a follow-up item on a denial. Resolving the denial
// completes whatever is still pending.
type DenialTask struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	DenialID    uuid.UUID  `db:"denial_id" json:"denial_id"`
	TaskType    string     `db:"task_type" json:"task_type"`
	Description string     `db:"description" json:"description"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	AssignedTo  *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	Status      string     `db:"status" json:"status"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
