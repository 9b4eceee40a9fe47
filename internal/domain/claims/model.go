package claims

import (
	"time"

	"github.com/google/uuid"
)

// Claim statuses. A claim starts pending, moves to submitted on
// clearinghouse acceptance, and from there payment posting drives it to
// paid or partially_paid. Denials set denied.
const (
	StatusPending       = "pending"
	StatusSubmitted     = "submitted"
	StatusPaid          = "paid"
	StatusPartiallyPaid = "partially_paid"
	StatusDenied        = "denied"
)

// Claim is a billable unit submitted to the payer. Generated claims roll
// up the service sessions for one client, service code, and calendar
// month.
type Claim struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	ClaimNumber         string     `db:"claim_number" json:"claim_number"`
	ClientID            uuid.UUID  `db:"client_id" json:"client_id"`
	ProviderID          uuid.UUID  `db:"provider_id" json:"provider_id"`
	ServiceCode         string     `db:"service_code" json:"service_code"`
	ServiceStart        time.Time  `db:"service_start" json:"service_start"`
	ServiceEnd          time.Time  `db:"service_end" json:"service_end"`
	Units               int        `db:"units" json:"units"`
	Rate                float64    `db:"rate" json:"rate"`
	TotalAmount         float64    `db:"total_amount" json:"total_amount"`
	AuthorizationNumber *string    `db:"authorization_number" json:"authorization_number,omitempty"`
	Status              string     `db:"status" json:"status"`
	Validated           bool       `db:"validated" json:"validated"`
	ValidatedAt         *time.Time `db:"validated_at" json:"validated_at,omitempty"`
	ClearinghouseID     *string    `db:"clearinghouse_id" json:"clearinghouse_id,omitempty"`
	SubmittedAt         *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// ClaimActivity is one append-only audit entry on a claim.
type ClaimActivity struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClaimID     uuid.UUID `db:"claim_id" json:"claim_id"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	Actor       string    `db:"actor" json:"actor"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ValidationResult is the outcome of running the billing rules against a
// claim. Rule findings are data, not errors: a claim with findings is
// still a well-formed claim.
type ValidationResult struct {
	ClaimID     uuid.UUID `json:"claim_id"`
	ClaimNumber string    `json:"claim_number"`
	Valid       bool      `json:"valid"`
	Errors      []string  `json:"errors"`
	Warnings    []string  `json:"warnings"`
}

// BatchValidationResult aggregates a validate-batch run.
type BatchValidationResult struct {
	Total   int                 `json:"total"`
	Valid   int                 `json:"valid"`
	Invalid int                 `json:"invalid"`
	Results []*ValidationResult `json:"results"`
}

// SubmissionResult reports one claim's trip through the clearinghouse.
type SubmissionResult struct {
	ClaimID         uuid.UUID `json:"claim_id"`
	ClaimNumber     string    `json:"claim_number"`
	Accepted        bool      `json:"accepted"`
	ClearinghouseID string    `json:"clearinghouse_id,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
}

// BatchSubmissionResult aggregates a submit-batch run.
type BatchSubmissionResult struct {
	Total    int                 `json:"total"`
	Accepted int                 `json:"accepted"`
	Rejected int                 `json:"rejected"`
	Failed   int                 `json:"failed"`
	Results  []*SubmissionResult `json:"results"`
}
