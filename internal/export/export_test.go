package export

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"splitkasse/internal/core"
)

func sampleMonths() []core.ClosedMonthSummary {
	return []core.ClosedMonthSummary{
		{
			MonthID:             2,
			Year:                2025,
			Month:               2,
			PrivateBalanceStart: 150,
			PrivateBalanceEnd:   -20.5,
			TotalTransfers:      700,
			ClosedAt:            time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			MonthID:           1,
			Year:              2025,
			Month:             1,
			PrivateBalanceEnd: 150,
			TotalTransfers:    500.1,
			ClosedAt:          time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestWriteClosedMonths(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteClosedMonths(&buf, sampleMonths(), 0); err != nil {
		t.Fatalf("WriteClosedMonths: %v", err)
	}

	want := strings.Join([]string{
		"period,private_balance_start,private_balance_end,total_transfers,closed_at,month_id",
		"2025-02,150.00,-20.50,700.00,2025-03-01T08:00:00Z,2",
		"2025-01,0.00,150.00,500.10,2025-02-01T09:30:00Z,1",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteClosedMonthsDelimiter(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteClosedMonths(&buf, sampleMonths()[:1], ';'); err != nil {
		t.Fatalf("WriteClosedMonths: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "2025-02;150.00;-20.50;") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteClosedMonthsEmptyAndNil(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteClosedMonths(&buf, []core.ClosedMonthSummary{}, 0); err != nil {
		t.Fatalf("WriteClosedMonths: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); !strings.HasPrefix(got, "period,") || strings.Contains(got, "\n") {
		t.Errorf("empty archive should be a header only, got %q", buf.String())
	}

	if err := WriteClosedMonths(&buf, nil, 0); err == nil {
		t.Error("expected error for nil rows")
	}
}

func TestWriteHistory(t *testing.T) {
	positions := []core.HistoryPosition{
		{
			ID:            7,
			Kind:          core.HistoryPrivateExpense,
			Description:   "Dinner, with friends",
			Amount:        42,
			CreatedAt:     time.Date(2025, 1, 12, 19, 0, 0, 0, time.UTC),
			CreatedByName: "Alex",
		},
	}

	var buf bytes.Buffer
	if err := WriteHistory(&buf, positions, 0); err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}
	want := "created_at,kind,description,amount,created_by\n" +
		`2025-01-12T19:00:00Z,private_expense,"Dinner, with friends",42.00,Alex` + "\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "archive.csv")
	err := WriteFile(path, func(w io.Writer) error {
		return WriteClosedMonths(w, sampleMonths(), 0)
	})
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "2025-01,0.00,150.00") {
		t.Errorf("file content:\n%s", data)
	}
}
