package denials

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWriteCSV_HeaderAndRow(t *testing.T) {
	deadline := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	assignee := "jordan"
	d := &Denial{
		ClaimID:        uuid.New(),
		ClientID:       uuid.New(),
		DenialCode:     "CO-197",
		DenialReason:   "authorization absent",
		Amount:         480,
		Status:         StatusPending,
		AssignedTo:     &assignee,
		AppealDeadline: &deadline,
		CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	items := []*WorklistItem{{Denial: d, ClaimNumber: "CLM2603010001", ComputedPriority: PriorityMedium}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, items); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want header plus one row", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeaders, ",") {
		t.Fatalf("header = %v", records[0])
	}

	row := records[1]
	if row[0] != "CLM2603010001" {
		t.Fatalf("claim number column = %s, want CLM2603010001", row[0])
	}
	if row[3] != "CO-197" || row[5] != "480.00" || row[6] != StatusPending {
		t.Fatalf("unexpected row: %v", row)
	}
	if row[9] != PriorityMedium {
		t.Fatalf("computed priority column = %s, want %s", row[9], PriorityMedium)
	}
	if row[10] != "2026-03-31" {
		t.Fatalf("deadline column = %s", row[10])
	}
	if row[8] != "" {
		t.Fatalf("assigned priority should be empty, got %s", row[8])
	}
}
