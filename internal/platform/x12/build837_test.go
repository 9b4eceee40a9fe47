package x12

import (
	"strings"
	"testing"
	"time"
)

func testClaim() ProfessionalClaim {
	return ProfessionalClaim{
		ClaimNumber:         "CLM2601150001",
		ServiceCode:         "W1727",
		ServiceStart:        time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		ServiceEnd:          time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		Units:               16,
		TotalAmount:         480.0,
		AuthorizationNumber: "AUTH-7781",
		Subscriber: Subscriber{
			LastName:   "Miller",
			FirstName:  "Avery",
			MedicaidID: "MD1234567",
			BirthDate:  time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		Rendering: Provider{
			LastName:  "Okafor",
			FirstName: "Chidi",
			NPI:       "1234567890",
		},
		Biller: Organization{
			Name:  "BrightPath Behavioral Services",
			NPI:   "9876543210",
			TaxID: "521234567",
		},
		Payer: Payer{ID: "MDMEDICAID", Name: "Maryland Medicaid"},
	}
}

func TestBuild837P_Envelope(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	edi := Build837P(testClaim(), now)

	if !strings.HasPrefix(edi, "ISA*") {
		t.Error("expected output to start with ISA segment")
	}
	for _, id := range []string{"GS*HC", "ST*837", "BHT*0019", "SE*", "GE*1*1~", "IEA*1*"} {
		if !strings.Contains(edi, id) {
			t.Errorf("expected %q in output", id)
		}
	}
}

func TestBuild837P_ClaimContent(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	edi := Build837P(testClaim(), now)

	tests := []string{
		"CLM*CLM2601150001*480.00",
		"SV1*HC:W1727*480.00*UN*16",
		"NM1*IL*1*Miller*Avery***MI*MD1234567",
		"NM1*82*1*Okafor*Chidi***XX*1234567890",
		"NM1*85*2*BrightPath Behavioral Services*****XX*9876543210",
		"REF*G1*AUTH-7781",
		"HI*ABK:F840",
		"DTP*472*RD8*20260105-20260112",
		"DMG*D8*20190314",
	}
	for _, want := range tests {
		if !strings.Contains(edi, want) {
			t.Errorf("expected %q in output:\n%s", want, edi)
		}
	}
}

func TestBuild837P_OmitsAuthRefWhenAbsent(t *testing.T) {
	pc := testClaim()
	pc.AuthorizationNumber = ""
	edi := Build837P(pc, time.Now())

	if strings.Contains(edi, "REF*G1") {
		t.Error("expected no REF*G1 segment without authorization number")
	}
}

func TestBuild837P_Reparseable(t *testing.T) {
	edi := Build837P(testClaim(), time.Now())

	segments, err := ParseSegments(edi)
	if err != nil {
		t.Fatalf("ParseSegments() error: %v", err)
	}

	clm := FirstSegment(segments, "CLM")
	if clm == nil {
		t.Fatal("expected CLM segment")
	}
	if clm.Element(1) != "CLM2601150001" {
		t.Errorf("expected claim number CLM2601150001, got %q", clm.Element(1))
	}
	if clm.Element(2) != "480.00" {
		t.Errorf("expected amount 480.00, got %q", clm.Element(2))
	}

	sv1 := FirstSegment(segments, "SV1")
	if sv1 == nil {
		t.Fatal("expected SV1 segment")
	}
	if sv1.Component(1, 2) != "W1727" {
		t.Errorf("expected service code W1727, got %q", sv1.Component(1, 2))
	}
}

func TestBuild837P_DefaultDiagnosis(t *testing.T) {
	pc := testClaim()
	pc.DiagnosisCode = ""
	edi := Build837P(pc, time.Now())
	if !strings.Contains(edi, "HI*ABK:"+DefaultDiagnosisCode) {
		t.Error("expected default diagnosis code in HI segment")
	}

	pc.DiagnosisCode = "F841"
	edi = Build837P(pc, time.Now())
	if !strings.Contains(edi, "HI*ABK:F841") {
		t.Error("expected explicit diagnosis code in HI segment")
	}
}
