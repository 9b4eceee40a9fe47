package clients

import (
	"time"

	"github.com/google/uuid"
)

// Client is an individual receiving waiver services.
type Client struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	DateOfBirth    time.Time  `db:"date_of_birth" json:"date_of_birth"`
	MedicaidID     string     `db:"medicaid_id" json:"medicaid_id"`
	WaiverProgram  *string    `db:"waiver_program" json:"waiver_program,omitempty"`
	EnrollmentDate *time.Time `db:"enrollment_date" json:"enrollment_date,omitempty"`
	Status         string     `db:"status" json:"status"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	AddressLine    *string    `db:"address_line" json:"address_line,omitempty"`
	City           *string    `db:"city" json:"city,omitempty"`
	State          *string    `db:"state" json:"state,omitempty"`
	ZipCode        *string    `db:"zip_code" json:"zip_code,omitempty"`
	GuardianName   *string    `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone  *string    `db:"guardian_phone" json:"guardian_phone,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Provider is a rendering provider employed by the agency.
type Provider struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	NPI           string     `db:"npi" json:"npi"`
	Credential    *string    `db:"credential" json:"credential,omitempty"`
	TaxonomyCode  *string    `db:"taxonomy_code" json:"taxonomy_code,omitempty"`
	Status        string     `db:"status" json:"status"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Email         *string    `db:"email" json:"email,omitempty"`
	HireDate      *time.Time `db:"hire_date" json:"hire_date,omitempty"`
	TerminatedAt  *time.Time `db:"terminated_at" json:"terminated_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ServiceSession is a delivered unit of service. Sessions start unbilled;
// claim generation marks them billed and links the claim.
type ServiceSession struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClientID      uuid.UUID  `db:"client_id" json:"client_id"`
	ProviderID    uuid.UUID  `db:"provider_id" json:"provider_id"`
	ServiceCode   string     `db:"service_code" json:"service_code"`
	SessionDate   time.Time  `db:"session_date" json:"session_date"`
	StartTime     *string    `db:"start_time" json:"start_time,omitempty"`
	EndTime       *string    `db:"end_time" json:"end_time,omitempty"`
	Units         int        `db:"units" json:"units"`
	UnitRate      float64    `db:"unit_rate" json:"unit_rate"`
	Status        string     `db:"status" json:"status"`
	BillingStatus string     `db:"billing_status" json:"billing_status"`
	ClaimID       *uuid.UUID `db:"claim_id" json:"claim_id,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Amount is units times the contracted unit rate.
func (s *ServiceSession) Amount() float64 {
	return float64(s.Units) * s.UnitRate
}

// Authorization is a payer approval to deliver a bounded number of units
// of one service code within a date window.
type Authorization struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ClientID        uuid.UUID `db:"client_id" json:"client_id"`
	AuthNumber      string    `db:"auth_number" json:"auth_number"`
	ServiceCode     string    `db:"service_code" json:"service_code"`
	AuthorizedUnits int       `db:"authorized_units" json:"authorized_units"`
	UsedUnits       int       `db:"used_units" json:"used_units"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// RemainingUnits reports how many authorized units are still available.
func (a *Authorization) RemainingUnits() int {
	return a.AuthorizedUnits - a.UsedUnits
}

// Covers reports whether the authorization window contains the given date.
func (a *Authorization) Covers(date time.Time) bool {
	return !date.Before(a.StartDate) && !date.After(a.EndDate)
}
