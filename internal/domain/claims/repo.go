package claims

import (
	"context"

	"github.com/google/uuid"
)

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	GetByClaimNumber(ctx context.Context, claimNumber string) (*Claim, error)
	Update(ctx context.Context, c *Claim) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Claim, int, error)
	// ListAll streams every claim matching the filters without pagination,
	// for CSV export.
	ListAll(ctx context.Context, params map[string]string) ([]*Claim, error)
	// ListByStatus returns claims in the given status, oldest first.
	ListByStatus(ctx context.Context, status string) ([]*Claim, error)
	// MaxNumberSuffix reports the highest numeric suffix among claim
	// numbers starting with the prefix, 0 when none exist. Used to pick
	// the next per-day sequence inside the generation transaction; a
	// count would reuse numbers after a deletion.
	MaxNumberSuffix(ctx context.Context, prefix string) (int, error)
	// Activities
	AddActivity(ctx context.Context, a *ClaimActivity) error
	ListActivities(ctx context.Context, claimID uuid.UUID) ([]*ClaimActivity, error)
}
