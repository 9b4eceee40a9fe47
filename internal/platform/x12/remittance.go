package x12

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Remittance is the parsed content of an 835 electronic remittance advice:
// one payment header plus one detail per claim the payer adjudicated.
type Remittance struct {
	ERANumber   string
	PayerName   string
	CheckNumber string
	CheckDate   time.Time
	CheckAmount float64
	Details     []RemittanceDetail
}

// RemittanceDetail is a single CLP claim-payment line.
type RemittanceDetail struct {
	ClaimNumber           string
	StatusCode            string
	BilledAmount          float64
	PaidAmount            float64
	PatientResponsibility float64
	AdjustmentCodes       string
}

// TotalPaid sums the paid amounts across all details.
func (r *Remittance) TotalPaid() float64 {
	var total float64
	for _, d := range r.Details {
		total += d.PaidAmount
	}
	return total
}

// RemittanceParser turns raw remittance content into a Remittance. The ERA
// import service is written against this interface so the wire format can
// vary per payer feed.
type RemittanceParser interface {
	Parse(content string) (*Remittance, error)
}

// X12Parser reads 835 transaction text: BPR for the payment header, TRN for
// the check/EFT trace number, N1*PR for the payer, CLP lines for per-claim
// payments, and CAS adjustment segments attached to the preceding CLP.
type X12Parser struct{}

func NewX12Parser() *X12Parser {
	return &X12Parser{}
}

func (p *X12Parser) Parse(content string) (*Remittance, error) {
	segments, err := ParseSegments(content)
	if err != nil {
		return nil, fmt.Errorf("parse remittance: %w", err)
	}

	if FirstSegment(segments, "BPR") == nil {
		return nil, fmt.Errorf("parse remittance: missing BPR payment segment")
	}

	remit := &Remittance{}
	var current *RemittanceDetail

	for _, seg := range segments {
		switch seg.ID {
		case "ST":
			// ST*835*<control number>
			if remit.ERANumber == "" {
				remit.ERANumber = seg.Element(2)
			}
		case "BPR":
			remit.CheckAmount = parseAmount(seg.Element(2))
			if d, err := time.Parse("20060102", seg.Element(16)); err == nil {
				remit.CheckDate = d
			}
		case "TRN":
			// TRN*1*<check or EFT trace number>
			remit.CheckNumber = seg.Element(2)
		case "N1":
			if seg.Element(1) == "PR" {
				remit.PayerName = seg.Element(2)
			}
		case "CLP":
			remit.Details = append(remit.Details, RemittanceDetail{
				ClaimNumber:           seg.Element(1),
				StatusCode:            seg.Element(2),
				BilledAmount:          parseAmount(seg.Element(3)),
				PaidAmount:            parseAmount(seg.Element(4)),
				PatientResponsibility: parseAmount(seg.Element(5)),
			})
			current = &remit.Details[len(remit.Details)-1]
		case "CAS":
			if current == nil {
				continue
			}
			// CAS*<group>*<reason>*<amount>...
			code := seg.Element(1) + ComponentSep + seg.Element(2)
			if current.AdjustmentCodes == "" {
				current.AdjustmentCodes = code
			} else {
				current.AdjustmentCodes += "," + code
			}
		}
	}

	if len(remit.Details) == 0 {
		return nil, fmt.Errorf("parse remittance: no CLP claim payment lines")
	}

	if remit.CheckDate.IsZero() {
		remit.CheckDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	return remit, nil
}

// FixtureParser fabricates a small deterministic remittance from any input.
// It exists for demo environments without a payer feed; the ERA number and
// amounts are derived from the content so repeated imports of the same text
// produce the same remittance.
type FixtureParser struct {
	ClaimNumbers []string
}

func (p *FixtureParser) Parse(content string) (*Remittance, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("parse remittance: content is empty")
	}

	seed := 0
	for _, r := range trimmed {
		seed = (seed*31 + int(r)) % 100000
	}

	claimNumbers := p.ClaimNumbers
	if len(claimNumbers) == 0 {
		claimNumbers = []string{
			fmt.Sprintf("CLM%06d0001", seed),
			fmt.Sprintf("CLM%06d0002", seed),
		}
	}

	remit := &Remittance{
		ERANumber:   fmt.Sprintf("ERA%08d", seed),
		PayerName:   "MARYLAND MEDICAID",
		CheckNumber: fmt.Sprintf("CHK%06d", seed%1000000),
		CheckDate:   time.Now().UTC().Truncate(24 * time.Hour),
	}

	for i, cn := range claimNumbers {
		billed := float64(80 + (seed+i*17)%240)
		paid := billed * 0.85
		remit.Details = append(remit.Details, RemittanceDetail{
			ClaimNumber:           cn,
			StatusCode:            "1",
			BilledAmount:          round2(billed),
			PaidAmount:            round2(paid),
			PatientResponsibility: 0,
			AdjustmentCodes:       "CO:45",
		})
	}
	remit.CheckAmount = round2(remit.TotalPaid())

	return remit, nil
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
