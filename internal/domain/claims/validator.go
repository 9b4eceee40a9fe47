package claims

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/brightpath/billing/internal/domain/clients"
)

// WaiverServiceCodes is the billable code set for the autism waiver
// program.
var WaiverServiceCodes = map[string]bool{
	"W1727":   true,
	"W1728":   true,
	"W7061":   true,
	"W7060":   true,
	"W7069":   true,
	"W7068":   true,
	"W7235":   true,
	"W7236":   true,
	"W7061TF": true,
	"W7060TF": true,
}

var (
	medicaidIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{9}$`)
	npiPattern        = regexp.MustCompile(`^\d{10}$`)
)

const filingWarningDays = 80

// Validate runs the billing rules against one claim. Findings are
// returned as data; only infrastructure failures surface as Go errors.
// A clean pass marks the claim validated.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (*ValidationResult, error) {
	claim, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, claim.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	prov, err := s.provs.GetByID(ctx, claim.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}

	result := s.runRules(claim, client, prov)
	if result.Valid {
		now := s.now()
		claim.Validated = true
		claim.ValidatedAt = &now
		if err := s.repo.Update(ctx, claim); err != nil {
			return nil, err
		}
		if err := s.recordActivity(ctx, claim.ID, "validated", "passed billing validation"); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ValidateBatch validates every pending claim and reports aggregate
// counts.
func (s *Service) ValidateBatch(ctx context.Context) (*BatchValidationResult, error) {
	pending, err := s.repo.ListByStatus(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	batch := &BatchValidationResult{Total: len(pending)}
	for _, claim := range pending {
		res, err := s.Validate(ctx, claim.ID)
		if err != nil {
			return nil, fmt.Errorf("validate claim %s: %w", claim.ClaimNumber, err)
		}
		if res.Valid {
			batch.Valid++
		} else {
			batch.Invalid++
		}
		batch.Results = append(batch.Results, res)
	}
	return batch, nil
}

func (s *Service) runRules(claim *Claim, client *clients.Client, prov *clients.Provider) *ValidationResult {
	result := &ValidationResult{
		ClaimID:     claim.ID,
		ClaimNumber: claim.ClaimNumber,
		Errors:      []string{},
		Warnings:    []string{},
	}
	now := s.now()

	// 1. required fields
	if client.MedicaidID == "" {
		result.Errors = append(result.Errors, "client has no Medicaid ID")
	}
	if client.DateOfBirth.IsZero() {
		result.Errors = append(result.Errors, "client has no date of birth")
	}
	if claim.ServiceCode == "" {
		result.Errors = append(result.Errors, "claim has no service code")
	}
	if prov.NPI == "" {
		result.Errors = append(result.Errors, "provider has no NPI")
	}
	if claim.ServiceStart.IsZero() {
		result.Errors = append(result.Errors, "claim has no service date")
	}

	// 2. identifier formats
	if client.MedicaidID != "" && !medicaidIDPattern.MatchString(client.MedicaidID) {
		result.Errors = append(result.Errors, fmt.Sprintf("Medicaid ID %q is not 9 alphanumeric characters", client.MedicaidID))
	}
	if prov.NPI != "" && !npiPattern.MatchString(prov.NPI) {
		result.Errors = append(result.Errors, fmt.Sprintf("NPI %q is not 10 digits", prov.NPI))
	}

	// 3. waiver code set
	if claim.ServiceCode != "" && !WaiverServiceCodes[claim.ServiceCode] {
		result.Errors = append(result.Errors, fmt.Sprintf("service code %s is not a billable waiver code", claim.ServiceCode))
	}

	// 4. service date and filing age
	if !claim.ServiceStart.IsZero() {
		if claim.ServiceStart.After(now) {
			result.Errors = append(result.Errors, "service date is in the future")
		} else {
			age := int(now.Sub(claim.ServiceEnd).Hours() / 24)
			if age > s.opts.TimelyFilingDays {
				result.Errors = append(result.Errors, fmt.Sprintf("claim is %d days old, past the %d-day filing limit", age, s.opts.TimelyFilingDays))
			} else if age > filingWarningDays {
				result.Warnings = append(result.Warnings, fmt.Sprintf("claim is %d days old, approaching the %d-day filing limit", age, s.opts.TimelyFilingDays))
			}
		}
	}

	// 5. authorization for intensive services
	if authRequiredCodes[claim.ServiceCode] && (claim.AuthorizationNumber == nil || *claim.AuthorizationNumber == "") {
		result.Errors = append(result.Errors, fmt.Sprintf("service code %s requires an authorization number", claim.ServiceCode))
	}

	// 6. amounts
	if claim.Units <= 0 {
		result.Errors = append(result.Errors, "units must be positive")
	}
	if claim.TotalAmount <= 0 {
		result.Errors = append(result.Errors, "total amount must be positive")
	}
	if claim.Units > 0 && claim.TotalAmount > 0 {
		expected := float64(claim.Units) * claim.Rate
		if diff := claim.TotalAmount - expected; diff > 0.01 || diff < -0.01 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("total amount %.2f does not equal units*rate %.2f", claim.TotalAmount, expected))
		}
	}

	// 7. waiver eligibility age
	if !client.DateOfBirth.IsZero() {
		years := now.Year() - client.DateOfBirth.Year()
		if now.YearDay() < client.DateOfBirth.YearDay() {
			years--
		}
		if years >= 21 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("client is %d years old; verify waiver eligibility", years))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
