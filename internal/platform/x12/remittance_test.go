package x12

import (
	"strings"
	"testing"
)

const sample835 = `ISA*00*          *00*          *ZZ*MDMEDICAID     *ZZ*521234567      *260120*0800*^*00501*000004521*0*P*:~
GS*HP*MDMEDICAID*521234567*20260120*0800*1*X*005010X221A1~
ST*835*000004521~
BPR*I*1258.40*C*CHK************20260120~
TRN*1*CHK004521*1521234567~
N1*PR*MARYLAND MEDICAID~
N1*PE*BRIGHTPATH BEHAVIORAL SERVICES*XX*9876543210~
CLP*CLM2601050001*1*480.00*408.00*0*MC*74210001~
CAS*CO*45*72.00~
CLP*CLM2601050002*1*960.00*850.40*0*MC*74210002~
CAS*CO*45*109.60~
CLP*CLM2601050003*4*220.00*0*0*MC*74210003~
CAS*CO*197*220.00~
SE*12*000004521~
GE*1*1~
IEA*1*000004521~`

func TestX12Parser_Header(t *testing.T) {
	remit, err := NewX12Parser().Parse(sample835)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if remit.ERANumber != "000004521" {
		t.Errorf("expected ERA number 000004521, got %q", remit.ERANumber)
	}
	if remit.CheckNumber != "CHK004521" {
		t.Errorf("expected check number CHK004521, got %q", remit.CheckNumber)
	}
	if remit.PayerName != "MARYLAND MEDICAID" {
		t.Errorf("expected payer MARYLAND MEDICAID, got %q", remit.PayerName)
	}
	if remit.CheckAmount != 1258.40 {
		t.Errorf("expected check amount 1258.40, got %f", remit.CheckAmount)
	}
	if remit.CheckDate.Format("2006-01-02") != "2026-01-20" {
		t.Errorf("expected check date 2026-01-20, got %s", remit.CheckDate.Format("2006-01-02"))
	}
}

func TestX12Parser_Details(t *testing.T) {
	remit, err := NewX12Parser().Parse(sample835)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if len(remit.Details) != 3 {
		t.Fatalf("expected 3 details, got %d", len(remit.Details))
	}

	first := remit.Details[0]
	if first.ClaimNumber != "CLM2601050001" {
		t.Errorf("expected claim CLM2601050001, got %q", first.ClaimNumber)
	}
	if first.BilledAmount != 480.00 {
		t.Errorf("expected billed 480.00, got %f", first.BilledAmount)
	}
	if first.PaidAmount != 408.00 {
		t.Errorf("expected paid 408.00, got %f", first.PaidAmount)
	}
	if first.AdjustmentCodes != "CO:45" {
		t.Errorf("expected adjustment CO:45, got %q", first.AdjustmentCodes)
	}

	denied := remit.Details[2]
	if denied.StatusCode != "4" {
		t.Errorf("expected status 4 for denied line, got %q", denied.StatusCode)
	}
	if denied.PaidAmount != 0 {
		t.Errorf("expected paid 0 for denied line, got %f", denied.PaidAmount)
	}
	if denied.AdjustmentCodes != "CO:197" {
		t.Errorf("expected adjustment CO:197, got %q", denied.AdjustmentCodes)
	}
}

func TestX12Parser_TotalPaid(t *testing.T) {
	remit, err := NewX12Parser().Parse(sample835)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := 408.00 + 850.40
	if got := remit.TotalPaid(); got != want {
		t.Errorf("expected total paid %.2f, got %.2f", want, got)
	}
}

func TestX12Parser_MissingBPR(t *testing.T) {
	_, err := NewX12Parser().Parse("ST*835*0001~CLP*C1*1*100*80*0~")
	if err == nil {
		t.Fatal("expected error for missing BPR segment")
	}
	if !strings.Contains(err.Error(), "BPR") {
		t.Errorf("expected BPR in error, got %v", err)
	}
}

func TestX12Parser_NoClaimLines(t *testing.T) {
	_, err := NewX12Parser().Parse("ST*835*0001~BPR*I*0*C*CHK~")
	if err == nil {
		t.Fatal("expected error for remittance with no CLP lines")
	}
}

func TestX12Parser_EmptyContent(t *testing.T) {
	_, err := NewX12Parser().Parse("")
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestFixtureParser_Deterministic(t *testing.T) {
	p := &FixtureParser{}

	r1, err := p.Parse("demo remittance body")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	r2, err := p.Parse("demo remittance body")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if r1.ERANumber != r2.ERANumber {
		t.Errorf("expected deterministic ERA number, got %q and %q", r1.ERANumber, r2.ERANumber)
	}
	if r1.CheckAmount != r2.CheckAmount {
		t.Errorf("expected deterministic check amount, got %f and %f", r1.CheckAmount, r2.CheckAmount)
	}
	if len(r1.Details) == 0 {
		t.Fatal("expected at least one detail")
	}
	if r1.CheckAmount != round2(r1.TotalPaid()) {
		t.Errorf("expected check amount to equal total paid, got %f vs %f", r1.CheckAmount, r1.TotalPaid())
	}
}

func TestFixtureParser_UsesProvidedClaimNumbers(t *testing.T) {
	p := &FixtureParser{ClaimNumbers: []string{"CLM2601150001", "CLM2601150002", "CLM2601150003"}}

	remit, err := p.Parse("anything")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(remit.Details) != 3 {
		t.Fatalf("expected 3 details, got %d", len(remit.Details))
	}
	if remit.Details[0].ClaimNumber != "CLM2601150001" {
		t.Errorf("expected CLM2601150001, got %q", remit.Details[0].ClaimNumber)
	}
}

func TestFixtureParser_EmptyContent(t *testing.T) {
	p := &FixtureParser{}
	if _, err := p.Parse("  "); err == nil {
		t.Fatal("expected error for empty content")
	}
}
