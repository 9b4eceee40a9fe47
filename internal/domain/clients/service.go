package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	clients  ClientRepository
	provs    ProviderRepository
	sessions SessionRepository
	auths    AuthorizationRepository
}

func NewService(clients ClientRepository, provs ProviderRepository, sessions SessionRepository, auths AuthorizationRepository) *Service {
	return &Service{clients: clients, provs: provs, sessions: sessions, auths: auths}
}

var validClientStatuses = map[string]bool{
	"active":     true,
	"inactive":   true,
	"discharged": true,
}

var validProviderStatuses = map[string]bool{
	"active":     true,
	"inactive":   true,
	"terminated": true,
}

var validSessionStatuses = map[string]bool{
	"scheduled": true,
	"completed": true,
	"cancelled": true,
	"no_show":   true,
}

var validAuthStatuses = map[string]bool{
	"active":    true,
	"expired":   true,
	"exhausted": true,
	"cancelled": true,
}

// --- Clients ---

func (s *Service) CreateClient(ctx context.Context, c *Client) error {
	if c.FirstName == "" || c.LastName == "" {
		return fmt.Errorf("client name is required")
	}
	if c.MedicaidID == "" {
		return fmt.Errorf("medicaid_id is required")
	}
	if c.DateOfBirth.IsZero() {
		return fmt.Errorf("date_of_birth is required")
	}
	if c.Status == "" {
		c.Status = "active"
	}
	if !validClientStatuses[c.Status] {
		return fmt.Errorf("invalid client status: %s", c.Status)
	}
	return s.clients.Create(ctx, c)
}

func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.clients.GetByID(ctx, id)
}

func (s *Service) UpdateClient(ctx context.Context, c *Client) error {
	if !validClientStatuses[c.Status] {
		return fmt.Errorf("invalid client status: %s", c.Status)
	}
	return s.clients.Update(ctx, c)
}

func (s *Service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return s.clients.Delete(ctx, id)
}

func (s *Service) SearchClients(ctx context.Context, params map[string]string, limit, offset int) ([]*Client, int, error) {
	return s.clients.Search(ctx, params, limit, offset)
}

// --- Providers ---

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("provider name is required")
	}
	if len(p.NPI) != 10 {
		return fmt.Errorf("npi must be 10 digits")
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if !validProviderStatuses[p.Status] {
		return fmt.Errorf("invalid provider status: %s", p.Status)
	}
	return s.provs.Create(ctx, p)
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.provs.GetByID(ctx, id)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) error {
	if len(p.NPI) != 10 {
		return fmt.Errorf("npi must be 10 digits")
	}
	if !validProviderStatuses[p.Status] {
		return fmt.Errorf("invalid provider status: %s", p.Status)
	}
	return s.provs.Update(ctx, p)
}

func (s *Service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	return s.provs.Delete(ctx, id)
}

func (s *Service) SearchProviders(ctx context.Context, params map[string]string, limit, offset int) ([]*Provider, int, error) {
	return s.provs.Search(ctx, params, limit, offset)
}

// --- Service sessions ---

func (s *Service) CreateSession(ctx context.Context, sess *ServiceSession) error {
	if sess.ClientID == uuid.Nil {
		return fmt.Errorf("client_id is required")
	}
	if sess.ProviderID == uuid.Nil {
		return fmt.Errorf("provider_id is required")
	}
	if sess.ServiceCode == "" {
		return fmt.Errorf("service_code is required")
	}
	if sess.Units <= 0 {
		return fmt.Errorf("units must be positive")
	}
	if sess.UnitRate < 0 {
		return fmt.Errorf("unit_rate cannot be negative")
	}
	if sess.Status == "" {
		sess.Status = "scheduled"
	}
	if !validSessionStatuses[sess.Status] {
		return fmt.Errorf("invalid session status: %s", sess.Status)
	}
	sess.BillingStatus = "unbilled"
	return s.sessions.Create(ctx, sess)
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*ServiceSession, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) UpdateSession(ctx context.Context, sess *ServiceSession) error {
	existing, err := s.sessions.GetByID(ctx, sess.ID)
	if err != nil {
		return err
	}
	if existing.BillingStatus == "billed" {
		return fmt.Errorf("session %s is already billed and cannot be edited", sess.ID)
	}
	if sess.Units <= 0 {
		return fmt.Errorf("units must be positive")
	}
	if !validSessionStatuses[sess.Status] {
		return fmt.Errorf("invalid session status: %s", sess.Status)
	}
	sess.BillingStatus = existing.BillingStatus
	sess.ClaimID = existing.ClaimID
	return s.sessions.Update(ctx, sess)
}

func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	existing, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.BillingStatus == "billed" {
		return fmt.Errorf("session %s is already billed and cannot be deleted", id)
	}
	return s.sessions.Delete(ctx, id)
}

func (s *Service) ListSessionsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*ServiceSession, int, error) {
	return s.sessions.ListByClient(ctx, clientID, limit, offset)
}

func (s *Service) SearchSessions(ctx context.Context, params map[string]string, limit, offset int) ([]*ServiceSession, int, error) {
	return s.sessions.Search(ctx, params, limit, offset)
}

// --- Authorizations ---

func (s *Service) CreateAuthorization(ctx context.Context, a *Authorization) error {
	if a.ClientID == uuid.Nil {
		return fmt.Errorf("client_id is required")
	}
	if a.AuthNumber == "" {
		return fmt.Errorf("auth_number is required")
	}
	if a.ServiceCode == "" {
		return fmt.Errorf("service_code is required")
	}
	if a.AuthorizedUnits <= 0 {
		return fmt.Errorf("authorized_units must be positive")
	}
	if a.EndDate.Before(a.StartDate) {
		return fmt.Errorf("end_date cannot precede start_date")
	}
	if a.Status == "" {
		a.Status = "active"
	}
	if !validAuthStatuses[a.Status] {
		return fmt.Errorf("invalid authorization status: %s", a.Status)
	}
	return s.auths.Create(ctx, a)
}

func (s *Service) GetAuthorization(ctx context.Context, id uuid.UUID) (*Authorization, error) {
	return s.auths.GetByID(ctx, id)
}

func (s *Service) UpdateAuthorization(ctx context.Context, a *Authorization) error {
	if !validAuthStatuses[a.Status] {
		return fmt.Errorf("invalid authorization status: %s", a.Status)
	}
	if a.EndDate.Before(a.StartDate) {
		return fmt.Errorf("end_date cannot precede start_date")
	}
	existing, err := s.auths.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if a.AuthorizedUnits < existing.UsedUnits {
		return fmt.Errorf("authorized_units cannot drop below the %d units already used", existing.UsedUnits)
	}
	return s.auths.Update(ctx, a)
}

func (s *Service) DeleteAuthorization(ctx context.Context, id uuid.UUID) error {
	existing, err := s.auths.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UsedUnits > 0 {
		return fmt.Errorf("authorization %s has consumed units and cannot be deleted", id)
	}
	return s.auths.Delete(ctx, id)
}

func (s *Service) ListAuthorizationsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Authorization, int, error) {
	return s.auths.ListByClient(ctx, clientID, limit, offset)
}

// FindActiveAuthorization locates the authorization covering a service
// code on a given date, or nil when the client has none.
func (s *Service) FindActiveAuthorization(ctx context.Context, clientID uuid.UUID, serviceCode string, date time.Time) (*Authorization, error) {
	return s.auths.FindActive(ctx, clientID, serviceCode, date)
}

// ConsumeUnits draws down an authorization. The repository enforces the
// cap atomically, so callers see ErrInsufficientUnits rather than an
// overdrawn balance.
func (s *Service) ConsumeUnits(ctx context.Context, id uuid.UUID, units int) error {
	if units <= 0 {
		return fmt.Errorf("units must be positive")
	}
	return s.auths.ConsumeUnits(ctx, id, units)
}

// ReleaseUnits returns units to an authorization, typically when a claim
// is voided or regenerated.
func (s *Service) ReleaseUnits(ctx context.Context, id uuid.UUID, units int) error {
	if units <= 0 {
		return fmt.Errorf("units must be positive")
	}
	return s.auths.ReleaseUnits(ctx, id, units)
}
