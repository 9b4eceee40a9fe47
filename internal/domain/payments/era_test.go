package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/billing/internal/domain/claims"
	"github.com/brightpath/billing/internal/platform/x12"
)

type mockERARepo struct {
	imports map[uuid.UUID]*ERAImport
	details map[uuid.UUID]*ERAPaymentDetail
	order   []uuid.UUID
}

func newMockERARepo() *mockERARepo {
	return &mockERARepo{
		imports: make(map[uuid.UUID]*ERAImport),
		details: make(map[uuid.UUID]*ERAPaymentDetail),
	}
}

func (m *mockERARepo) CreateImport(_ context.Context, imp *ERAImport) error {
	imp.ID = uuid.New()
	cp := *imp
	m.imports[imp.ID] = &cp
	return nil
}

func (m *mockERARepo) GetImport(_ context.Context, id uuid.UUID) (*ERAImport, error) {
	imp, ok := m.imports[id]
	if !ok {
		return nil, fmt.Errorf("import %s not found", id)
	}
	cp := *imp
	return &cp, nil
}

func (m *mockERARepo) UpdateImport(_ context.Context, imp *ERAImport) error {
	if _, ok := m.imports[imp.ID]; !ok {
		return fmt.Errorf("import %s not found", imp.ID)
	}
	cp := *imp
	m.imports[imp.ID] = &cp
	return nil
}

func (m *mockERARepo) ListImports(_ context.Context, _, _ int) ([]*ERAImport, int, error) {
	var out []*ERAImport
	for _, imp := range m.imports {
		cp := *imp
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockERARepo) AddDetail(_ context.Context, d *ERAPaymentDetail) error {
	d.ID = uuid.New()
	cp := *d
	m.details[d.ID] = &cp
	m.order = append(m.order, d.ID)
	return nil
}

func (m *mockERARepo) GetDetail(_ context.Context, id uuid.UUID) (*ERAPaymentDetail, error) {
	d, ok := m.details[id]
	if !ok {
		return nil, fmt.Errorf("detail %s not found", id)
	}
	cp := *d
	return &cp, nil
}

func (m *mockERARepo) UpdateDetail(_ context.Context, d *ERAPaymentDetail) error {
	if _, ok := m.details[d.ID]; !ok {
		return fmt.Errorf("detail %s not found", d.ID)
	}
	cp := *d
	m.details[d.ID] = &cp
	return nil
}

func (m *mockERARepo) ListDetails(_ context.Context, importID uuid.UUID) ([]*ERAPaymentDetail, error) {
	var out []*ERAPaymentDetail
	for _, id := range m.order {
		d := m.details[id]
		if d.ERAImportID == importID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// remitFixture loads a two-line remittance into the stub parser: one
// paid line matching the fixture claim and one denied zero-paid line for
// an unknown claim number.
func remitFixture(f *paymentFixture) {
	f.parser.remit = &x12.Remittance{
		ERANumber:   "ERA20260210",
		PayerName:   "MARYLAND MEDICAID",
		CheckNumber: "CHK884521",
		CheckDate:   time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC),
		CheckAmount: 430,
		Details: []x12.RemittanceDetail{
			{
				ClaimNumber:           "CLM2601150001",
				StatusCode:            "1",
				BilledAmount:          480,
				PaidAmount:            430,
				PatientResponsibility: 0,
				AdjustmentCodes:       "CO:45,PR:2",
			},
			{
				ClaimNumber:  "CLM2601150099",
				StatusCode:   "4",
				BilledAmount: 250,
				PaidAmount:   0,
			},
		},
	}
}

func importFixture(t *testing.T, f *paymentFixture) *ImportResult {
	t.Helper()
	remitFixture(f)
	result, err := f.svc.ImportERA(context.Background(), "era_20260210.835", "ISA*...")
	if err != nil {
		t.Fatalf("ImportERA: %v", err)
	}
	return result
}

func TestImportERA_CreatesHeaderAndDetails(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)

	imp := result.Import
	if imp.ERANumber != "ERA20260210" || imp.CheckNumber != "CHK884521" {
		t.Fatalf("unexpected header: %+v", imp)
	}
	if imp.Status != ERAStatusImported {
		t.Fatalf("import status = %s, want %s", imp.Status, ERAStatusImported)
	}
	if imp.TotalPaid != 430 {
		t.Fatalf("total paid = %.2f, want 430.00", imp.TotalPaid)
	}
	if len(result.Details) != 2 {
		t.Fatalf("details = %d, want 2", len(result.Details))
	}
	if result.Details[0].MatchedClaimID != nil {
		t.Fatal("details should start unmatched")
	}
}

func TestImportERA_SplitsAdjustmentCodes(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)

	codes := result.Details[0].AdjustmentCodes
	if len(codes) != 2 || codes[0] != "CO:45" || codes[1] != "PR:2" {
		t.Fatalf("adjustment codes = %v, want [CO:45 PR:2]", codes)
	}
	if result.Details[1].AdjustmentCodes != nil {
		t.Fatalf("empty codes should stay nil, got %v", result.Details[1].AdjustmentCodes)
	}
}

func TestImportERA_ParserErrorAborts(t *testing.T) {
	f := newPaymentFixture(t)
	f.parser.err = fmt.Errorf("missing ISA segment")
	if _, err := f.svc.ImportERA(context.Background(), "bad.835", "garbage"); err == nil {
		t.Fatal("expected parse error to surface")
	}
	if len(f.era.imports) != 0 {
		t.Fatal("no import should be recorded on parse failure")
	}
}

func TestMatchDetail_ResolvesClaimNumber(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)

	d, err := f.svc.MatchDetail(context.Background(), result.Details[0].ID)
	if err != nil {
		t.Fatalf("MatchDetail: %v", err)
	}
	if d.MatchedClaimID == nil || *d.MatchedClaimID != f.claim.ID {
		t.Fatal("detail should link to the fixture claim")
	}
}

func TestMatchDetail_UnknownClaimNumberFails(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)

	if _, err := f.svc.MatchDetail(context.Background(), result.Details[1].ID); err == nil {
		t.Fatal("expected error for unknown claim number")
	}
}

func TestAutoMatch_CountsMatchedAndUnmatched(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)

	mr, err := f.svc.AutoMatch(context.Background(), result.Import.ID)
	if err != nil {
		t.Fatalf("AutoMatch: %v", err)
	}
	if mr.Total != 2 || mr.Matched != 1 || mr.Unmatched != 1 {
		t.Fatalf("match result = %+v, want total 2, matched 1, unmatched 1", mr)
	}
}

func TestAutoMatch_AllMatchedAdvancesImportStatus(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)

	// Give the denied line a claim to land on.
	other := &claims.Claim{
		ID:          uuid.New(),
		ClaimNumber: "CLM2601150099",
		TotalAmount: 250,
		Status:      claims.StatusSubmitted,
	}
	f.claims.items[other.ID] = other

	if _, err := f.svc.AutoMatch(context.Background(), result.Import.ID); err != nil {
		t.Fatalf("AutoMatch: %v", err)
	}
	imp, _ := f.svc.GetImport(context.Background(), result.Import.ID)
	if imp.Status != ERAStatusMatched {
		t.Fatalf("import status = %s, want %s", imp.Status, ERAStatusMatched)
	}
}

func TestPostDetail_PostsInsurancePayment(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)
	d, err := f.svc.MatchDetail(context.Background(), result.Details[0].ID)
	if err != nil {
		t.Fatalf("MatchDetail: %v", err)
	}

	posting, err := f.svc.PostDetail(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("PostDetail: %v", err)
	}
	if posting.Type != TypeInsurance || posting.Amount != 430 {
		t.Fatalf("posting = %s %.2f, want insurance 430.00", posting.Type, posting.Amount)
	}
	if posting.ERANumber == nil || *posting.ERANumber != "ERA20260210" {
		t.Fatal("posting should carry the ERA number")
	}
	if posting.CheckNumber == nil || *posting.CheckNumber != "CHK884521" {
		t.Fatal("posting should carry the check number")
	}
	if !posting.PaymentDate.Equal(time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("payment date = %s, want the check date", posting.PaymentDate)
	}

	claim, _ := f.claims.GetByID(context.Background(), f.claim.ID)
	if claim.Status != claims.StatusPartiallyPaid {
		t.Fatalf("claim status = %s, want %s", claim.Status, claims.StatusPartiallyPaid)
	}
}

func TestPostDetail_RejectsUnmatched(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)
	if _, err := f.svc.PostDetail(context.Background(), result.Details[0].ID); err == nil {
		t.Fatal("expected error posting an unmatched detail")
	}
}

func TestPostDetail_RejectsDoublePosting(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)
	d, err := f.svc.MatchDetail(context.Background(), result.Details[0].ID)
	if err != nil {
		t.Fatalf("MatchDetail: %v", err)
	}
	if _, err := f.svc.PostDetail(context.Background(), d.ID); err != nil {
		t.Fatalf("PostDetail: %v", err)
	}
	if _, err := f.svc.PostDetail(context.Background(), d.ID); err == nil {
		t.Fatal("expected error posting the same detail twice")
	}
}

func TestPostMatched_SkipsZeroPaidAndAdvancesStatus(t *testing.T) {
	f := newPaymentFixture(t)
	result := importFixture(t, f)

	other := &claims.Claim{
		ID:          uuid.New(),
		ClaimNumber: "CLM2601150099",
		TotalAmount: 250,
		Status:      claims.StatusSubmitted,
	}
	f.claims.items[other.ID] = other
	if _, err := f.svc.AutoMatch(context.Background(), result.Import.ID); err != nil {
		t.Fatalf("AutoMatch: %v", err)
	}

	pr, err := f.svc.PostMatched(context.Background(), result.Import.ID)
	if err != nil {
		t.Fatalf("PostMatched: %v", err)
	}
	if pr.Posted != 1 || pr.Skipped != 1 {
		t.Fatalf("post result = %+v, want posted 1, skipped 1", pr)
	}

	// Zero-paid denied lines do not hold the import back.
	imp, _ := f.svc.GetImport(context.Background(), result.Import.ID)
	if imp.Status != ERAStatusPosted {
		t.Fatalf("import status = %s, want %s", imp.Status, ERAStatusPosted)
	}

	// Denied line stays untouched on the claim side.
	denied, _ := f.claims.GetByID(context.Background(), other.ID)
	if denied.Status != claims.StatusSubmitted {
		t.Fatalf("denied claim status = %s, want unchanged", denied.Status)
	}
}
