package payments

import (
	"context"

	"github.com/google/uuid"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *PaymentPosting) error
	GetByID(ctx context.Context, id uuid.UUID) (*PaymentPosting, error)
	Update(ctx context.Context, p *PaymentPosting) error
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*PaymentPosting, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*PaymentPosting, int, error)
	// SumPostedByClaim totals the non-voided postings on a claim.
	SumPostedByClaim(ctx context.Context, claimID uuid.UUID) (float64, error)
}

type BatchDepositRepository interface {
	Create(ctx context.Context, b *BatchDeposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*BatchDeposit, error)
	Update(ctx context.Context, b *BatchDeposit) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*BatchDeposit, int, error)
	// Recompute refreshes the running total and count from the postings
	// linked to the deposit.
	Recompute(ctx context.Context, id uuid.UUID) error
}

type ERARepository interface {
	CreateImport(ctx context.Context, imp *ERAImport) error
	GetImport(ctx context.Context, id uuid.UUID) (*ERAImport, error)
	UpdateImport(ctx context.Context, imp *ERAImport) error
	ListImports(ctx context.Context, limit, offset int) ([]*ERAImport, int, error)
	AddDetail(ctx context.Context, d *ERAPaymentDetail) error
	GetDetail(ctx context.Context, id uuid.UUID) (*ERAPaymentDetail, error)
	UpdateDetail(ctx context.Context, d *ERAPaymentDetail) error
	ListDetails(ctx context.Context, importID uuid.UUID) ([]*ERAPaymentDetail, error)
}
