package denials

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeaders = []string{
	"claim_number", "claim_id", "client_id", "denial_code", "denial_reason",
	"amount", "status", "assigned_to", "assigned_priority",
	"computed_priority", "appeal_deadline", "appeal_status", "created_at",
}

const csvDateLayout = "2006-01-02"

// WriteCSV renders the worklist for download. Export only; denials enter
// the system through intake, never through file upload.
func WriteCSV(w io.Writer, items []*WorklistItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return err
	}
	for _, item := range items {
		if err := cw.Write(csvRecord(item)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(item *WorklistItem) []string {
	d := item.Denial
	return []string{
		item.ClaimNumber,
		d.ClaimID.String(),
		d.ClientID.String(),
		d.DenialCode,
		d.DenialReason,
		strconv.FormatFloat(d.Amount, 'f', 2, 64),
		d.Status,
		strDeref(d.AssignedTo),
		strDeref(d.AssignedPriority),
		item.ComputedPriority,
		dateDeref(d.AppealDeadline),
		strDeref(d.AppealStatus),
		d.CreatedAt.Format(csvDateLayout),
	}
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateDeref(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(csvDateLayout)
}
