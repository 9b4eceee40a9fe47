package clients

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ClientRepository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetByMedicaidID(ctx context.Context, medicaidID string) (*Client, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Client, int, error)
}

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetByNPI(ctx context.Context, npi string) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Provider, int, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *ServiceSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceSession, error)
	Update(ctx context.Context, s *ServiceSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*ServiceSession, int, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*ServiceSession, error)
	// ListBillable returns completed, unbilled sessions dated on or before cutoff.
	ListBillable(ctx context.Context, cutoff time.Time) ([]*ServiceSession, error)
	MarkBilled(ctx context.Context, sessionIDs []uuid.UUID, claimID uuid.UUID) error
	MarkUnbilled(ctx context.Context, claimID uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ServiceSession, int, error)
}

type AuthorizationRepository interface {
	Create(ctx context.Context, a *Authorization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Authorization, error)
	Update(ctx context.Context, a *Authorization) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Authorization, int, error)
	// FindActive returns the active authorization covering the service code
	// and date for a client, or nil when none exists.
	FindActive(ctx context.Context, clientID uuid.UUID, serviceCode string, date time.Time) (*Authorization, error)
	// FindByNumber resolves a client's authorization by its payer-issued
	// number, or nil when none exists.
	FindByNumber(ctx context.Context, clientID uuid.UUID, authNumber string) (*Authorization, error)
	// ConsumeUnits atomically increments used units, failing when the
	// increment would exceed the authorized total.
	ConsumeUnits(ctx context.Context, id uuid.UUID, units int) error
	// ReleaseUnits returns previously consumed units, flooring at zero.
	ReleaseUnits(ctx context.Context, id uuid.UUID, units int) error
}
