package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ImportResult summarizes a freshly parsed remittance file.
type ImportResult struct {
	Import  *ERAImport          `json:"import"`
	Details []*ERAPaymentDetail `json:"details"`
}

// MatchResult reports an auto-match pass over an import.
type MatchResult struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// PostResult reports a post-matched pass over an import.
type PostResult struct {
	Posted  int `json:"posted"`
	Skipped int `json:"skipped"`
}

// ImportERA parses remittance content and records the header plus one
// unmatched detail per claim payment line.
func (s *Service) ImportERA(ctx context.Context, filename, content string) (*ImportResult, error) {
	remit, err := s.parser.Parse(content)
	if err != nil {
		return nil, err
	}

	imp := &ERAImport{
		ERANumber:   remit.ERANumber,
		PayerName:   remit.PayerName,
		CheckNumber: remit.CheckNumber,
		CheckDate:   remit.CheckDate,
		CheckAmount: remit.CheckAmount,
		Filename:    filename,
		TotalPaid:   remit.TotalPaid(),
		Status:      ERAStatusImported,
	}
	result := &ImportResult{Import: imp}
	err = s.withTx(ctx, func(ctx context.Context) error {
		if err := s.era.CreateImport(ctx, imp); err != nil {
			return fmt.Errorf("create era import: %w", err)
		}
		for _, rd := range remit.Details {
			d := &ERAPaymentDetail{
				ERAImportID:     imp.ID,
				ClaimNumber:     rd.ClaimNumber,
				StatusCode:      rd.StatusCode,
				BilledAmount:    rd.BilledAmount,
				PaidAmount:      rd.PaidAmount,
				PatientAmount:   rd.PatientResponsibility,
				AdjustmentCodes: splitAdjustmentCodes(rd.AdjustmentCodes),
			}
			if err := s.era.AddDetail(ctx, d); err != nil {
				return fmt.Errorf("add era detail: %w", err)
			}
			result.Details = append(result.Details, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func splitAdjustmentCodes(codes string) []string {
	if codes == "" {
		return nil
	}
	return strings.Split(codes, ",")
}

func (s *Service) GetImport(ctx context.Context, id uuid.UUID) (*ERAImport, error) {
	return s.era.GetImport(ctx, id)
}

func (s *Service) ListImports(ctx context.Context, limit, offset int) ([]*ERAImport, int, error) {
	return s.era.ListImports(ctx, limit, offset)
}

func (s *Service) ListDetails(ctx context.Context, importID uuid.UUID) ([]*ERAPaymentDetail, error) {
	return s.era.ListDetails(ctx, importID)
}

// MatchDetail resolves one detail's stated claim number against our
// claims.
func (s *Service) MatchDetail(ctx context.Context, detailID uuid.UUID) (*ERAPaymentDetail, error) {
	d, err := s.era.GetDetail(ctx, detailID)
	if err != nil {
		return nil, err
	}
	claim, err := s.claims.GetByClaimNumber(ctx, d.ClaimNumber)
	if err != nil {
		return nil, fmt.Errorf("no claim matches number %s", d.ClaimNumber)
	}
	d.MatchedClaimID = &claim.ID
	if err := s.era.UpdateDetail(ctx, d); err != nil {
		return nil, err
	}
	if err := s.refreshImportStatus(ctx, d.ERAImportID); err != nil {
		return nil, err
	}
	return d, nil
}

// AutoMatch tries every unmatched detail in an import.
func (s *Service) AutoMatch(ctx context.Context, importID uuid.UUID) (*MatchResult, error) {
	details, err := s.era.ListDetails(ctx, importID)
	if err != nil {
		return nil, err
	}
	result := &MatchResult{Total: len(details)}
	for _, d := range details {
		if d.MatchedClaimID != nil {
			result.Matched++
			continue
		}
		claim, err := s.claims.GetByClaimNumber(ctx, d.ClaimNumber)
		if err != nil {
			result.Unmatched++
			continue
		}
		d.MatchedClaimID = &claim.ID
		if err := s.era.UpdateDetail(ctx, d); err != nil {
			return nil, err
		}
		result.Matched++
	}
	if err := s.refreshImportStatus(ctx, importID); err != nil {
		return nil, err
	}
	return result, nil
}

// PostDetail routes one matched detail through the payment poster as an
// insurance payment carrying the ERA reference.
func (s *Service) PostDetail(ctx context.Context, detailID uuid.UUID) (*PaymentPosting, error) {
	d, err := s.era.GetDetail(ctx, detailID)
	if err != nil {
		return nil, err
	}
	if d.Posted {
		return nil, fmt.Errorf("detail for claim %s is already posted", d.ClaimNumber)
	}
	if d.MatchedClaimID == nil {
		return nil, fmt.Errorf("detail for claim %s is not matched", d.ClaimNumber)
	}
	if d.PaidAmount == 0 {
		return nil, fmt.Errorf("detail for claim %s has no paid amount", d.ClaimNumber)
	}
	imp, err := s.era.GetImport(ctx, d.ERAImportID)
	if err != nil {
		return nil, err
	}

	posting := &PaymentPosting{
		ClaimID:     d.MatchedClaimID,
		PaymentDate: imp.CheckDate,
		Amount:      d.PaidAmount,
		Type:        TypeInsurance,
		CheckNumber: &imp.CheckNumber,
		ERANumber:   &imp.ERANumber,
	}
	err = s.withTx(ctx, func(ctx context.Context) error {
		if err := s.Post(ctx, posting); err != nil {
			return err
		}
		d.Posted = true
		if err := s.era.UpdateDetail(ctx, d); err != nil {
			return err
		}
		return s.refreshImportStatus(ctx, d.ERAImportID)
	})
	if err != nil {
		return nil, err
	}
	return posting, nil
}

// PostMatched posts every matched, unposted detail in the import.
// Details that cannot post (unmatched, zero-paid) are skipped rather than
// aborting the batch.
func (s *Service) PostMatched(ctx context.Context, importID uuid.UUID) (*PostResult, error) {
	details, err := s.era.ListDetails(ctx, importID)
	if err != nil {
		return nil, err
	}
	result := &PostResult{}
	for _, d := range details {
		if d.Posted || d.MatchedClaimID == nil || d.PaidAmount == 0 {
			result.Skipped++
			continue
		}
		if _, err := s.PostDetail(ctx, d.ID); err != nil {
			return nil, fmt.Errorf("post detail %s: %w", d.ClaimNumber, err)
		}
		result.Posted++
	}
	return result, nil
}

// refreshImportStatus advances the import through imported, matched, and
// posted as its details progress.
func (s *Service) refreshImportStatus(ctx context.Context, importID uuid.UUID) error {
	imp, err := s.era.GetImport(ctx, importID)
	if err != nil {
		return err
	}
	details, err := s.era.ListDetails(ctx, importID)
	if err != nil {
		return err
	}
	allMatched := len(details) > 0
	allPosted := len(details) > 0
	for _, d := range details {
		if d.MatchedClaimID == nil {
			allMatched = false
		}
		if !d.Posted && d.PaidAmount != 0 {
			allPosted = false
		}
	}

	status := ERAStatusImported
	if allMatched {
		status = ERAStatusMatched
	}
	if allMatched && allPosted {
		status = ERAStatusPosted
	}
	if status != imp.Status {
		imp.Status = status
		return s.era.UpdateImport(ctx, imp)
	}
	return nil
}
