package claims

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// csvHeaders is the fixed export column order. ReadCSV depends on it, so
// exports from one deployment can be re-imported by another.
var csvHeaders = []string{
	"claim_number", "client_id", "provider_id", "service_code",
	"service_start", "service_end", "units", "rate", "total_amount",
	"authorization_number", "status", "validated",
}

const csvDateLayout = "2006-01-02"

// WriteCSV renders claims as CSV with the fixed header row.
func WriteCSV(w io.Writer, items []*Claim) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return err
	}
	for _, c := range items {
		authNumber := ""
		if c.AuthorizationNumber != nil {
			authNumber = *c.AuthorizationNumber
		}
		record := []string{
			c.ClaimNumber,
			c.ClientID.String(),
			c.ProviderID.String(),
			c.ServiceCode,
			c.ServiceStart.Format(csvDateLayout),
			c.ServiceEnd.Format(csvDateLayout),
			strconv.Itoa(c.Units),
			strconv.FormatFloat(c.Rate, 'f', 2, 64),
			strconv.FormatFloat(c.TotalAmount, 'f', 2, 64),
			authNumber,
			c.Status,
			strconv.FormatBool(c.Validated),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses claims previously written by WriteCSV. The numeric
// columns round-trip exactly at two decimal places.
func ReadCSV(r io.Reader) ([]*Claim, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(csvHeaders) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeaders), len(header))
	}
	for i, h := range header {
		if h != csvHeaders[i] {
			return nil, fmt.Errorf("unexpected column %d: %q", i, h)
		}
	}

	var items []*Claim
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		c, err := claimFromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, c)
	}
	return items, nil
}

func claimFromRecord(record []string) (*Claim, error) {
	c := &Claim{
		ClaimNumber: record[0],
		ServiceCode: record[3],
		Status:      record[10],
	}
	var err error
	if c.ClientID, err = uuid.Parse(record[1]); err != nil {
		return nil, fmt.Errorf("client_id: %w", err)
	}
	if c.ProviderID, err = uuid.Parse(record[2]); err != nil {
		return nil, fmt.Errorf("provider_id: %w", err)
	}
	if c.ServiceStart, err = time.Parse(csvDateLayout, record[4]); err != nil {
		return nil, fmt.Errorf("service_start: %w", err)
	}
	if c.ServiceEnd, err = time.Parse(csvDateLayout, record[5]); err != nil {
		return nil, fmt.Errorf("service_end: %w", err)
	}
	if c.Units, err = strconv.Atoi(record[6]); err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	if c.Rate, err = strconv.ParseFloat(record[7], 64); err != nil {
		return nil, fmt.Errorf("rate: %w", err)
	}
	if c.TotalAmount, err = strconv.ParseFloat(record[8], 64); err != nil {
		return nil, fmt.Errorf("total_amount: %w", err)
	}
	if record[9] != "" {
		auth := record[9]
		c.AuthorizationNumber = &auth
	}
	if c.Validated, err = strconv.ParseBool(record[11]); err != nil {
		return nil, fmt.Errorf("validated: %w", err)
	}
	return c, nil
}
