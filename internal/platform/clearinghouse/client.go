// Package clearinghouse submits professional claims to a payer
// clearinghouse and reports acceptance or rejection.
package clearinghouse

import (
	"context"
	"time"
)

// Submission is one claim hand-off: the business claim number plus the
// rendered 837P payload.
type Submission struct {
	ClaimNumber string
	PayerID     string
	EDI         string
}

// Result is the clearinghouse's synchronous answer. Accepted submissions
// carry the clearinghouse-assigned tracking ID; rejected ones carry the
// rejection reason.
type Result struct {
	Accepted        bool
	ClearinghouseID string
	RejectionReason string
	SubmittedAt     time.Time
}

// Client submits claims. The billing service treats acceptance as
// "submitted"; adjudication outcomes arrive later via remittance.
type Client interface {
	Submit(ctx context.Context, sub Submission) (Result, error)
}
