package denials

import (
	"context"

	"github.com/google/uuid"
)

type DenialRepository interface {
	Create(ctx context.Context, d *Denial) error
	GetByID(ctx context.Context, id uuid.UUID) (*Denial, error)
	Update(ctx context.Context, d *Denial) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Denial, int, error)
	// ListAll streams every denial matching the filters, for exports.
	ListAll(ctx context.Context, params map[string]string) ([]*Denial, error)
	AddActivity(ctx context.Context, a *DenialActivity) error
	ListActivities(ctx context.Context, denialID uuid.UUID) ([]*DenialActivity, error)
}

type AppealRepository interface {
	Create(ctx context.Context, a *Appeal) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appeal, error)
	Update(ctx context.Context, a *Appeal) error
	ListByDenial(ctx context.Context, denialID uuid.UUID) ([]*Appeal, error)
}

type TaskRepository interface {
	Create(ctx context.Context, t *DenialTask) error
	GetByID(ctx context.Context, id uuid.UUID) (*DenialTask, error)
	Update(ctx context.Context, t *DenialTask) error
	ListByDenial(ctx context.Context, denialID uuid.UUID) ([]*DenialTask, error)
	ListPendingByDenial(ctx context.Context, denialID uuid.UUID) ([]*DenialTask, error)
}
