package payments

import (
	"time"

	"github.com/google/uuid"
)

// Posting types.
const (
	TypeInsurance  = "insurance"
	TypePatient    = "patient"
	TypeAdjustment = "adjustment"
	TypeReversal   = "reversal"
)

// Posting statuses.
const (
	StatusPosted = "posted"
	StatusVoided = "voided"
)

// PaymentPosting is one signed ledger entry against a claim. A posting
// without a claim link is an unapplied payment. Adjustments are stored
// negative. Voiding never deletes: the original is flagged and an
// opposite-amount reversal row keeps the ledger append-only.
type PaymentPosting struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ClaimID         *uuid.UUID `db:"claim_id" json:"claim_id,omitempty"`
	BatchDepositID  *uuid.UUID `db:"batch_deposit_id" json:"batch_deposit_id,omitempty"`
	PaymentDate     time.Time  `db:"payment_date" json:"payment_date"`
	Amount          float64    `db:"amount" json:"amount"`
	Type            string     `db:"type" json:"type"`
	CheckNumber     *string    `db:"check_number" json:"check_number,omitempty"`
	ReferenceNumber *string    `db:"reference_number" json:"reference_number,omitempty"`
	ERANumber       *string    `db:"era_number" json:"era_number,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	Status          string     `db:"status" json:"status"`
	VoidReason      *string    `db:"void_reason" json:"void_reason,omitempty"`
	VoidedBy        *string    `db:"voided_by" json:"voided_by,omitempty"`
	VoidedAt        *time.Time `db:"voided_at" json:"voided_at,omitempty"`
	ReversalOfID    *uuid.UUID `db:"reversal_of_id" json:"reversal_of_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// BatchDeposit groups postings under one bank deposit.
type BatchDeposit struct {
	ID            uuid.UUID `db:"id" json:"id"`
	DepositDate   time.Time `db:"deposit_date" json:"deposit_date"`
	BankReference string    `db:"bank_reference" json:"bank_reference"`
	TotalAmount   float64   `db:"total_amount" json:"total_amount"`
	PostingCount  int       `db:"posting_count" json:"posting_count"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ERA import statuses.
const (
	ERAStatusImported = "imported"
	ERAStatusMatched  = "matched"
	ERAStatusPosted   = "posted"
)

// ERAImport is one parsed 835 remittance file.
type ERAImport struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ERANumber   string    `db:"era_number" json:"era_number"`
	PayerName   string    `db:"payer_name" json:"payer_name"`
	CheckNumber string    `db:"check_number" json:"check_number"`
	CheckDate   time.Time `db:"check_date" json:"check_date"`
	CheckAmount float64   `db:"check_amount" json:"check_amount"`
	Filename    string    `db:"filename" json:"filename"`
	TotalPaid   float64   `db:"total_paid" json:"total_paid"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ERAPaymentDetail is one CLP line from a remittance: the payer's view
// of a claim. MatchedClaimID stays nil until the stated claim number is
// resolved against our claims.
type ERAPaymentDetail struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ERAImportID     uuid.UUID  `db:"era_import_id" json:"era_import_id"`
	ClaimNumber     string     `db:"claim_number" json:"claim_number"`
	StatusCode      string     `db:"status_code" json:"status_code"`
	BilledAmount    float64    `db:"billed_amount" json:"billed_amount"`
	PaidAmount      float64    `db:"paid_amount" json:"paid_amount"`
	PatientAmount   float64    `db:"patient_amount" json:"patient_amount"`
	AdjustmentCodes []string   `db:"adjustment_codes" json:"adjustment_codes"`
	MatchedClaimID  *uuid.UUID `db:"matched_claim_id" json:"matched_claim_id,omitempty"`
	Posted          bool       `db:"posted" json:"posted"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
