package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/billing/internal/domain/claims"
	"github.com/brightpath/billing/internal/platform/x12"
)

type mockPaymentRepo struct {
	items map[uuid.UUID]*PaymentPosting
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{items: make(map[uuid.UUID]*PaymentPosting)}
}

func (m *mockPaymentRepo) Create(_ context.Context, p *PaymentPosting) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*PaymentPosting, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("posting %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepo) Update(_ context.Context, p *PaymentPosting) error {
	if _, ok := m.items[p.ID]; !ok {
		return fmt.Errorf("posting %s not found", p.ID)
	}
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockPaymentRepo) ListByClaim(_ context.Context, claimID uuid.UUID) ([]*PaymentPosting, error) {
	var out []*PaymentPosting
	for _, p := range m.items {
		if p.ClaimID != nil && *p.ClaimID == claimID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*PaymentPosting, int, error) {
	var out []*PaymentPosting
	for _, p := range m.items {
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockPaymentRepo) SumPostedByClaim(_ context.Context, claimID uuid.UUID) (float64, error) {
	var sum float64
	for _, p := range m.items {
		if p.ClaimID == nil || *p.ClaimID != claimID {
			continue
		}
		if p.Status != StatusPosted || p.Type == TypeReversal {
			continue
		}
		sum += p.Amount
	}
	return sum, nil
}

type mockDepositRepo struct {
	items    map[uuid.UUID]*BatchDeposit
	payments *mockPaymentRepo
}

func newMockDepositRepo(payments *mockPaymentRepo) *mockDepositRepo {
	return &mockDepositRepo{items: make(map[uuid.UUID]*BatchDeposit), payments: payments}
}

func (m *mockDepositRepo) Create(_ context.Context, b *BatchDeposit) error {
	b.ID = uuid.New()
	cp := *b
	m.items[b.ID] = &cp
	return nil
}

func (m *mockDepositRepo) GetByID(_ context.Context, id uuid.UUID) (*BatchDeposit, error) {
	b, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("deposit %s not found", id)
	}
	cp := *b
	return &cp, nil
}

func (m *mockDepositRepo) Update(_ context.Context, b *BatchDeposit) error {
	if _, ok := m.items[b.ID]; !ok {
		return fmt.Errorf("deposit %s not found", b.ID)
	}
	cp := *b
	m.items[b.ID] = &cp
	return nil
}

func (m *mockDepositRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockDepositRepo) List(_ context.Context, _, _ int) ([]*BatchDeposit, int, error) {
	var out []*BatchDeposit
	for _, b := range m.items {
		cp := *b
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockDepositRepo) Recompute(_ context.Context, id uuid.UUID) error {
	b, ok := m.items[id]
	if !ok {
		return fmt.Errorf("deposit %s not found", id)
	}
	b.TotalAmount = 0
	b.PostingCount = 0
	for _, p := range m.payments.items {
		if p.BatchDepositID != nil && *p.BatchDepositID == id && p.Status == StatusPosted {
			b.TotalAmount += p.Amount
			b.PostingCount++
		}
	}
	return nil
}

type mockClaimStore struct {
	items      map[uuid.UUID]*claims.Claim
	activities []*claims.ClaimActivity
}

func newMockClaimStore() *mockClaimStore {
	return &mockClaimStore{items: make(map[uuid.UUID]*claims.Claim)}
}

func (m *mockClaimStore) GetByID(_ context.Context, id uuid.UUID) (*claims.Claim, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("claim %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimStore) GetByClaimNumber(_ context.Context, number string) (*claims.Claim, error) {
	for _, c := range m.items {
		if c.ClaimNumber == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, errors.New("claim not found")
}

func (m *mockClaimStore) Update(_ context.Context, c *claims.Claim) error {
	if _, ok := m.items[c.ID]; !ok {
		return fmt.Errorf("claim %s not found", c.ID)
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockClaimStore) AddActivity(_ context.Context, a *claims.ClaimActivity) error {
	m.activities = append(m.activities, a)
	return nil
}

type stubRemitParser struct {
	remit *x12.Remittance
	err   error
}

func (s *stubRemitParser) Parse(_ string) (*x12.Remittance, error) {
	return s.remit, s.err
}

type paymentFixture struct {
	svc      *Service
	payments *mockPaymentRepo
	deposits *mockDepositRepo
	era      *mockERARepo
	claims   *mockClaimStore
	parser   *stubRemitParser
	claim    *claims.Claim
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	payments := newMockPaymentRepo()
	deposits := newMockDepositRepo(payments)
	era := newMockERARepo()
	claimStore := newMockClaimStore()
	parser := &stubRemitParser{}

	claim := &claims.Claim{
		ID:          uuid.New(),
		ClaimNumber: "CLM2601150001",
		ServiceCode: "W7069",
		Units:       16,
		Rate:        30,
		TotalAmount: 480,
		Status:      claims.StatusSubmitted,
	}
	claimStore.items[claim.ID] = claim

	svc := NewService(payments, deposits, era, claimStore, parser, nil)
	svc.now = func() time.Time { return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC) }
	return &paymentFixture{
		svc:      svc,
		payments: payments,
		deposits: deposits,
		era:      era,
		claims:   claimStore,
		parser:   parser,
		claim:    claim,
	}
}

func (f *paymentFixture) post(t *testing.T, amount float64, typ string) *PaymentPosting {
	t.Helper()
	p := &PaymentPosting{ClaimID: &f.claim.ID, Amount: amount, Type: typ}
	if err := f.svc.Post(context.Background(), p); err != nil {
		t.Fatalf("Post: %v", err)
	}
	return p
}

func TestPost_RejectsInvalidType(t *testing.T) {
	f := newPaymentFixture(t)
	p := &PaymentPosting{ClaimID: &f.claim.ID, Amount: 100, Type: "refund"}
	if err := f.svc.Post(context.Background(), p); err == nil {
		t.Fatal("expected error for invalid posting type")
	}
}

func TestPost_RejectsZeroAmount(t *testing.T) {
	f := newPaymentFixture(t)
	p := &PaymentPosting{ClaimID: &f.claim.ID, Amount: 0, Type: TypeInsurance}
	if err := f.svc.Post(context.Background(), p); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestPost_NegatesAdjustments(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.post(t, 50, TypeAdjustment)
	if p.Amount != -50 {
		t.Fatalf("adjustment amount = %.2f, want -50.00", p.Amount)
	}
}

func TestPost_FullPaymentMarksClaimPaid(t *testing.T) {
	f := newPaymentFixture(t)
	f.post(t, 480, TypeInsurance)

	got, _ := f.claims.GetByID(context.Background(), f.claim.ID)
	if got.Status != claims.StatusPaid {
		t.Fatalf("claim status = %s, want %s", got.Status, claims.StatusPaid)
	}
	if len(f.claims.activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(f.claims.activities))
	}
}

func TestPost_PartialPaymentMarksPartiallyPaid(t *testing.T) {
	f := newPaymentFixture(t)
	f.post(t, 200, TypeInsurance)

	got, _ := f.claims.GetByID(context.Background(), f.claim.ID)
	if got.Status != claims.StatusPartiallyPaid {
		t.Fatalf("claim status = %s, want %s", got.Status, claims.StatusPartiallyPaid)
	}
}

func TestPost_PaymentPlusAdjustmentClearsBalance(t *testing.T) {
	f := newPaymentFixture(t)
	f.post(t, 430, TypeInsurance)
	f.post(t, -50, TypeAdjustment)

	got, _ := f.claims.GetByID(context.Background(), f.claim.ID)
	if got.Status != claims.StatusPaid {
		t.Fatalf("claim status = %s, want %s", got.Status, claims.StatusPaid)
	}
}

func TestPost_UnappliedPaymentSkipsClaim(t *testing.T) {
	f := newPaymentFixture(t)
	p := &PaymentPosting{Amount: 100, Type: TypeInsurance}
	if err := f.svc.Post(context.Background(), p); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(f.claims.activities) != 0 {
		t.Fatal("unapplied payment should not touch any claim")
	}
}

func TestPost_RecomputesDeposit(t *testing.T) {
	f := newPaymentFixture(t)
	dep := &BatchDeposit{BankReference: "DEP-0210"}
	if err := f.svc.CreateDeposit(context.Background(), dep); err != nil {
		t.Fatalf("CreateDeposit: %v", err)
	}

	p := &PaymentPosting{ClaimID: &f.claim.ID, BatchDepositID: &dep.ID, Amount: 480, Type: TypeInsurance}
	if err := f.svc.Post(context.Background(), p); err != nil {
		t.Fatalf("Post: %v", err)
	}

	got, _ := f.svc.GetDeposit(context.Background(), dep.ID)
	if got.TotalAmount != 480 || got.PostingCount != 1 {
		t.Fatalf("deposit total=%.2f count=%d, want 480.00/1", got.TotalAmount, got.PostingCount)
	}
}

func TestVoid_RevertsClaimStatus(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.post(t, 480, TypeInsurance)

	if err := f.svc.Void(context.Background(), p.ID, "posted to wrong claim"); err != nil {
		t.Fatalf("Void: %v", err)
	}

	got, _ := f.claims.GetByID(context.Background(), f.claim.ID)
	if got.Status != claims.StatusSubmitted {
		t.Fatalf("claim status = %s, want %s", got.Status, claims.StatusSubmitted)
	}

	voided, _ := f.svc.Get(context.Background(), p.ID)
	if voided.Status != StatusVoided || voided.VoidReason == nil {
		t.Fatal("original posting should be voided with a reason")
	}
}

func TestVoid_WritesReversalRow(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.post(t, 480, TypeInsurance)

	if err := f.svc.Void(context.Background(), p.ID, "duplicate"); err != nil {
		t.Fatalf("Void: %v", err)
	}

	entries, _ := f.svc.ListByClaim(context.Background(), f.claim.ID)
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(entries))
	}
	var reversal *PaymentPosting
	for _, e := range entries {
		if e.Type == TypeReversal {
			reversal = e
		}
	}
	if reversal == nil {
		t.Fatal("no reversal row written")
	}
	if reversal.Amount != -480 {
		t.Fatalf("reversal amount = %.2f, want -480.00", reversal.Amount)
	}
	if reversal.ReversalOfID == nil || *reversal.ReversalOfID != p.ID {
		t.Fatal("reversal should reference the voided posting")
	}
}

func TestVoid_RejectsAlreadyVoided(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.post(t, 100, TypeInsurance)
	if err := f.svc.Void(context.Background(), p.ID, "first"); err != nil {
		t.Fatalf("Void: %v", err)
	}
	if err := f.svc.Void(context.Background(), p.ID, "second"); !errors.Is(err, ErrVoidNotAllowed) {
		t.Fatalf("err = %v, want ErrVoidNotAllowed", err)
	}
}

func TestVoid_RejectsReversals(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.post(t, 100, TypeInsurance)
	if err := f.svc.Void(context.Background(), p.ID, "bad entry"); err != nil {
		t.Fatalf("Void: %v", err)
	}

	var reversalID uuid.UUID
	for id, e := range f.payments.items {
		if e.Type == TypeReversal {
			reversalID = id
		}
	}
	if err := f.svc.Void(context.Background(), reversalID, "undo the undo"); !errors.Is(err, ErrVoidNotAllowed) {
		t.Fatalf("err = %v, want ErrVoidNotAllowed", err)
	}
}

func TestVoid_RequiresReason(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.post(t, 100, TypeInsurance)
	if err := f.svc.Void(context.Background(), p.ID, ""); err == nil {
		t.Fatal("expected error for missing void reason")
	}
}

func TestVoid_WithDepositRecomputes(t *testing.T) {
	f := newPaymentFixture(t)
	dep := &BatchDeposit{BankReference: "DEP-0211"}
	if err := f.svc.CreateDeposit(context.Background(), dep); err != nil {
		t.Fatalf("CreateDeposit: %v", err)
	}
	p := &PaymentPosting{ClaimID: &f.claim.ID, BatchDepositID: &dep.ID, Amount: 480, Type: TypeInsurance}
	if err := f.svc.Post(context.Background(), p); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if err := f.svc.Void(context.Background(), p.ID, "nsf"); err != nil {
		t.Fatalf("Void: %v", err)
	}

	got, _ := f.svc.GetDeposit(context.Background(), dep.ID)
	if got.TotalAmount != 0 || got.PostingCount != 0 {
		t.Fatalf("deposit total=%.2f count=%d after void, want 0/0", got.TotalAmount, got.PostingCount)
	}
}

func TestDeleteDeposit_RejectsWhenPostingsLinked(t *testing.T) {
	f := newPaymentFixture(t)
	dep := &BatchDeposit{BankReference: "DEP-0212"}
	if err := f.svc.CreateDeposit(context.Background(), dep); err != nil {
		t.Fatalf("CreateDeposit: %v", err)
	}
	p := &PaymentPosting{ClaimID: &f.claim.ID, BatchDepositID: &dep.ID, Amount: 50, Type: TypeInsurance}
	if err := f.svc.Post(context.Background(), p); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if err := f.svc.DeleteDeposit(context.Background(), dep.ID); err == nil {
		t.Fatal("expected error deleting deposit with linked postings")
	}
}

func TestCreateDeposit_RequiresBankReference(t *testing.T) {
	f := newPaymentFixture(t)
	if err := f.svc.CreateDeposit(context.Background(), &BatchDeposit{}); err == nil {
		t.Fatal("expected error for missing bank reference")
	}
}
