package claims

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/brightpath/billing/internal/platform/clearinghouse"
	"github.com/brightpath/billing/internal/platform/x12"
)

// Submit sends one claim through the clearinghouse. Acceptance moves the
// claim to submitted and records the tracking ID; rejection leaves it
// pending with the reason in the activity log and opens a denial for the
// follow-up worklist.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (*SubmissionResult, error) {
	claim, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.Status != StatusPending && claim.Status != StatusDenied {
		return nil, fmt.Errorf("claim %s is %s and cannot be submitted", claim.ClaimNumber, claim.Status)
	}
	if !claim.Validated {
		return nil, fmt.Errorf("claim %s has not passed validation", claim.ClaimNumber)
	}

	edi, err := s.BuildEDI(ctx, claim)
	if err != nil {
		return nil, err
	}

	res, err := s.ch.Submit(ctx, clearinghouse.Submission{
		ClaimNumber: claim.ClaimNumber,
		PayerID:     s.opts.PayerID,
		EDI:         edi,
	})
	if err != nil {
		return nil, fmt.Errorf("clearinghouse submit: %w", err)
	}

	sr := &SubmissionResult{
		ClaimID:         claim.ID,
		ClaimNumber:     claim.ClaimNumber,
		Accepted:        res.Accepted,
		ClearinghouseID: res.ClearinghouseID,
		RejectionReason: res.RejectionReason,
	}
	if res.Accepted {
		submittedAt := res.SubmittedAt
		claim.Status = StatusSubmitted
		claim.ClearinghouseID = &res.ClearinghouseID
		claim.SubmittedAt = &submittedAt
		if err := s.repo.Update(ctx, claim); err != nil {
			return nil, err
		}
		if err := s.recordActivity(ctx, claim.ID, "submitted",
			fmt.Sprintf("accepted by clearinghouse as %s", res.ClearinghouseID)); err != nil {
			return nil, err
		}
	} else {
		if err := s.recordActivity(ctx, claim.ID, "rejected",
			fmt.Sprintf("clearinghouse rejected: %s", res.RejectionReason)); err != nil {
			return nil, err
		}
		if s.denials != nil {
			if err := s.denials.RecordRejection(ctx, claim.ID, res.RejectionReason); err != nil {
				return nil, fmt.Errorf("open rejection denial: %w", err)
			}
		}
	}
	return sr, nil
}

// SubmitBatch submits every validated pending claim. Each claim is
// isolated: one failure does not stop the rest.
func (s *Service) SubmitBatch(ctx context.Context) (*BatchSubmissionResult, error) {
	pending, err := s.repo.ListByStatus(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	batch := &BatchSubmissionResult{}
	for _, claim := range pending {
		if !claim.Validated {
			continue
		}
		batch.Total++
		res, err := s.Submit(ctx, claim.ID)
		if err != nil {
			batch.Failed++
			batch.Results = append(batch.Results, &SubmissionResult{
				ClaimID:         claim.ID,
				ClaimNumber:     claim.ClaimNumber,
				RejectionReason: err.Error(),
			})
			continue
		}
		if res.Accepted {
			batch.Accepted++
		} else {
			batch.Rejected++
		}
		batch.Results = append(batch.Results, res)
	}
	return batch, nil
}

// BuildEDI renders the claim as 837P transaction text.
func (s *Service) BuildEDI(ctx context.Context, claim *Claim) (string, error) {
	client, err := s.clients.GetByID(ctx, claim.ClientID)
	if err != nil {
		return "", fmt.Errorf("load client: %w", err)
	}
	prov, err := s.provs.GetByID(ctx, claim.ProviderID)
	if err != nil {
		return "", fmt.Errorf("load provider: %w", err)
	}

	authNumber := ""
	if claim.AuthorizationNumber != nil {
		authNumber = *claim.AuthorizationNumber
	}
	pc := x12.ProfessionalClaim{
		ClaimNumber:         claim.ClaimNumber,
		ServiceCode:         claim.ServiceCode,
		ServiceStart:        claim.ServiceStart,
		ServiceEnd:          claim.ServiceEnd,
		Units:               claim.Units,
		TotalAmount:         claim.TotalAmount,
		AuthorizationNumber: authNumber,
		Subscriber: x12.Subscriber{
			LastName:   client.LastName,
			FirstName:  client.FirstName,
			MedicaidID: client.MedicaidID,
			BirthDate:  client.DateOfBirth,
		},
		Rendering: x12.Provider{
			LastName:  prov.LastName,
			FirstName: prov.FirstName,
			NPI:       prov.NPI,
		},
		Biller: x12.Organization{
			Name:  s.opts.OrganizationName,
			NPI:   s.opts.BillingNPI,
			TaxID: s.opts.BillingTaxID,
		},
		Payer: x12.Payer{
			ID:   s.opts.PayerID,
			Name: s.opts.PayerName,
		},
	}
	return x12.Build837P(pc, s.now()), nil
}
