// Package export writes the month archive and activity history as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"splitkasse/internal/core"
)

// DefaultDelimiter is used when a zero rune is passed.
const DefaultDelimiter = ','

var errNilRows = errors.New("cannot write nil rows to CSV")

// ClosedMonthRow is one archived month in CSV form. Amounts always carry
// two decimals.
type ClosedMonthRow struct {
	Period              string `csv:"period"`
	PrivateBalanceStart string `csv:"private_balance_start"`
	PrivateBalanceEnd   string `csv:"private_balance_end"`
	TotalTransfers      string `csv:"total_transfers"`
	ClosedAt            string `csv:"closed_at"`
	MonthID             int64  `csv:"month_id"`
}

// HistoryRow is one activity entry in CSV form.
type HistoryRow struct {
	CreatedAt   string `csv:"created_at"`
	Kind        string `csv:"kind"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	CreatedBy   string `csv:"created_by"`
}

func formatAmount(m core.Money) string {
	return decimal.NewFromFloat(core.RoundMoney(m)).StringFixed(2)
}

func ClosedMonthRows(months []core.ClosedMonthSummary) []ClosedMonthRow {
	rows := make([]ClosedMonthRow, 0, len(months))
	for _, m := range months {
		rows = append(rows, ClosedMonthRow{
			Period:              fmt.Sprintf("%04d-%02d", m.Year, m.Month),
			PrivateBalanceStart: formatAmount(m.PrivateBalanceStart),
			PrivateBalanceEnd:   formatAmount(m.PrivateBalanceEnd),
			TotalTransfers:      formatAmount(m.TotalTransfers),
			ClosedAt:            m.ClosedAt.UTC().Format(time.RFC3339),
			MonthID:             m.MonthID,
		})
	}
	return rows
}

func HistoryRows(positions []core.HistoryPosition) []HistoryRow {
	rows := make([]HistoryRow, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, HistoryRow{
			CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
			Kind:        string(p.Kind),
			Description: p.Description,
			Amount:      formatAmount(p.Amount),
			CreatedBy:   p.CreatedByName,
		})
	}
	return rows
}

// WriteClosedMonths writes months with a header row.
func WriteClosedMonths(w io.Writer, months []core.ClosedMonthSummary, delimiter rune) error {
	if months == nil {
		return errNilRows
	}
	return writeCSV(w, ClosedMonthRows(months), delimiter)
}

// WriteHistory writes history positions with a header row.
func WriteHistory(w io.Writer, positions []core.HistoryPosition, delimiter rune) error {
	if positions == nil {
		return errNilRows
	}
	return writeCSV(w, HistoryRows(positions), delimiter)
}

func writeCSV[T any](w io.Writer, rows []T, delimiter rune) error {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WriteFile creates path (and its directory) and fills it through write.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing CSV file: %w", cerr)
		}
	}()
	return write(file)
}
