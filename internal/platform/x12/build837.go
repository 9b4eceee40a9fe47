package x12

import (
	"fmt"
	"strconv"
	"time"
)

// ProfessionalClaim carries everything the 837P builder needs. The domain
// layer flattens its records into this shape so the codec stays free of
// database types.
type ProfessionalClaim struct {
	ClaimNumber         string
	ServiceCode         string
	ServiceStart        time.Time
	ServiceEnd          time.Time
	Units               int
	TotalAmount         float64
	AuthorizationNumber string
	DiagnosisCode       string

	Subscriber Subscriber
	Rendering  Provider
	Biller     Organization
	Payer      Payer
}

// Subscriber identifies the Medicaid recipient on the claim.
type Subscriber struct {
	LastName   string
	FirstName  string
	MedicaidID string
	BirthDate  time.Time
}

// Provider is the rendering provider.
type Provider struct {
	LastName  string
	FirstName string
	NPI       string
}

// Organization is the billing entity.
type Organization struct {
	Name  string
	NPI   string
	TaxID string
}

// Payer identifies the receiving payer.
type Payer struct {
	ID   string
	Name string
}

// DefaultDiagnosisCode is used when the claim does not carry one. F84.0 is
// the autistic disorder ICD-10 code that applies to every waiver recipient.
const DefaultDiagnosisCode = "F840"

// Build837P renders a professional claim as simplified 837P transaction
// text: ISA/GS envelope, ST/BHT header, billing and subscriber loops, CLM
// with a single SV1 service line, and SE/GE/IEA trailers. The output is
// illustrative EDI for clearinghouse hand-off, not a certified 5010
// document.
func Build837P(pc ProfessionalClaim, now time.Time) string {
	dx := pc.DiagnosisCode
	if dx == "" {
		dx = DefaultDiagnosisCode
	}

	amount := formatAmount(pc.TotalAmount)
	controlNumber := "000000001"

	var segments []Segment
	segments = append(segments,
		Seg("ISA",
			"00", blank(10),
			"00", blank(10),
			"ZZ", pad(pc.Biller.TaxID, 15),
			"ZZ", pad(pc.Payer.ID, 15),
			now.Format("060102"), now.Format("1504"),
			RepetitionSep, "00501", controlNumber, "0", "P", ComponentSep),
		Seg("GS", "HC", pc.Biller.TaxID, pc.Payer.ID,
			now.Format("20060102"), now.Format("1504"),
			"1", "X", "005010X222A1"),
		Seg("ST", "837", "0001", "005010X222A1"),
		Seg("BHT", "0019", "00", pc.ClaimNumber,
			now.Format("20060102"), now.Format("1504"), "CH"),
		// 1000A submitter / 1000B receiver
		Seg("NM1", "41", "2", pc.Biller.Name, "", "", "", "", "46", pc.Biller.TaxID),
		Seg("NM1", "40", "2", pc.Payer.Name, "", "", "", "", "46", pc.Payer.ID),
		// 2000A billing provider
		Seg("HL", "1", "", "20", "1"),
		Seg("NM1", "85", "2", pc.Biller.Name, "", "", "", "", "XX", pc.Biller.NPI),
		Seg("REF", "EI", pc.Biller.TaxID),
		// 2000B subscriber
		Seg("HL", "2", "1", "22", "0"),
		Seg("SBR", "P", "18", "", "", "", "", "", "", "MC"),
		Seg("NM1", "IL", "1", pc.Subscriber.LastName, pc.Subscriber.FirstName,
			"", "", "", "MI", pc.Subscriber.MedicaidID),
		Seg("DMG", "D8", pc.Subscriber.BirthDate.Format("20060102")),
		// 2300 claim
		Seg("CLM", pc.ClaimNumber, amount, "", "", "12"+ComponentSep+"B"+ComponentSep+"1",
			"Y", "A", "Y", "Y"),
	)

	if pc.AuthorizationNumber != "" {
		segments = append(segments, Seg("REF", "G1", pc.AuthorizationNumber))
	}

	segments = append(segments,
		Seg("HI", "ABK"+ComponentSep+dx),
		Seg("NM1", "82", "1", pc.Rendering.LastName, pc.Rendering.FirstName,
			"", "", "", "XX", pc.Rendering.NPI),
		// 2400 service line
		Seg("LX", "1"),
		Seg("SV1", "HC"+ComponentSep+pc.ServiceCode, amount, "UN",
			strconv.Itoa(pc.Units), "", "", "1"),
		Seg("DTP", "472", "RD8",
			pc.ServiceStart.Format("20060102")+"-"+pc.ServiceEnd.Format("20060102")),
	)

	// SE count includes ST and SE themselves
	stIndex := 2 // ISA and GS precede ST
	seCount := len(segments) - stIndex + 1
	segments = append(segments,
		Seg("SE", strconv.Itoa(seCount), "0001"),
		Seg("GE", "1", "1"),
		Seg("IEA", "1", controlNumber),
	)

	return Render(segments)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func blank(n int) string {
	return pad("", n)
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + fmt.Sprintf("%*s", n-len(s), "")
}
