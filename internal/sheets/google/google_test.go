package google

import (
	"context"
	"strings"
	"testing"
	"time"

	"splitkasse/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{SheetName: "Archive"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Options{SpreadsheetID: "test-id"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "test-id",
		CredentialsFile: t.TempDir() + "/missing.json",
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file read error, got %v", err)
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", archiveBase: "Archive"}

	if err := c.AppendClosedMonth(context.Background(), core.ClosedMonthSummary{MonthID: 1, Year: 2025, Month: 1}); err == nil {
		t.Error("expected error when service is nil")
	}
	if _, err := c.ListArchived(context.Background(), 2025); err == nil {
		t.Error("expected error when service is nil")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Archive", 2025, "2025 Archive"},
		{"  Archive  ", 2024, "2024 Archive"},
		{"2023 Archive", 2025, "2023 Archive"},
		{"", 2025, ""},
		{"1800 Archive", 2025, "2025 1800 Archive"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestArchiveRowRoundTrip(t *testing.T) {
	sum := core.ClosedMonthSummary{
		MonthID:             9,
		Year:                2025,
		Month:               3,
		PrivateBalanceStart: 100,
		PrivateBalanceEnd:   -12.5,
		TotalTransfers:      1000,
		ClosedAt:            time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC),
	}

	row := archiveRow(sum)
	if row[0] != "2025-03" {
		t.Fatalf("period = %v", row[0])
	}

	parsed := parseArchiveRows([][]any{
		{"Period", "Start", "End", "Transfers", "Closed at", "Month ID"},
		row,
	})
	if len(parsed) != 1 {
		t.Fatalf("expected header to be skipped, got %+v", parsed)
	}
	got := parsed[0]
	if !got.ClosedAt.Equal(sum.ClosedAt) {
		t.Fatalf("closed at = %v, want %v", got.ClosedAt, sum.ClosedAt)
	}
	got.ClosedAt = sum.ClosedAt
	if got != sum {
		t.Fatalf("parsed = %+v, want %+v", got, sum)
	}
}

func TestParseArchiveRows_SheetFormatting(t *testing.T) {
	values := [][]any{
		{"2025-01", "€ 1.234,56", "-12,5", "0", "2025-02-01T08:00:00Z", "4"},
		{"2025-02", "x", "1", "1", "", "5"},
		{"2025-03", "1"},
		{},
	}

	rows := parseArchiveRows(values)
	if len(rows) != 1 {
		t.Fatalf("expected one valid row, got %+v", rows)
	}
	if rows[0].PrivateBalanceStart != 1234.56 || rows[0].PrivateBalanceEnd != -12.5 || rows[0].MonthID != 4 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestFindMonthRow(t *testing.T) {
	values := [][]any{
		{"Period", "Start", "End", "Transfers", "Closed at", "Month ID"},
		{"2025-01", 0, 10, 0, "", 3},
		{"2025-02", 10, 20, 0, "", 4},
	}
	if got := findMonthRow(values, 4); got != 3 {
		t.Errorf("findMonthRow = %d, want 3", got)
	}
	if got := findMonthRow(values, 99); got != 0 {
		t.Errorf("findMonthRow = %d, want 0", got)
	}
}
