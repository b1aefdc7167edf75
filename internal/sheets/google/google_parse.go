package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"splitkasse/internal/core"
)

const periodLayout = "2006-01"

func archiveRow(s core.ClosedMonthSummary) []any {
	return []any{
		fmt.Sprintf("%04d-%02d", s.Year, s.Month),
		core.RoundMoney(s.PrivateBalanceStart),
		core.RoundMoney(s.PrivateBalanceEnd),
		core.RoundMoney(s.TotalTransfers),
		s.ClosedAt.UTC().Format(time.RFC3339),
		s.MonthID,
	}
}

// parseArchiveRows converts a values matrix (as returned by the Sheets API)
// back into summaries. Header and malformed rows are skipped.
func parseArchiveRows(values [][]any) []core.ClosedMonthSummary {
	var out []core.ClosedMonthSummary
	for _, raw := range values {
		row := toStrings(raw)
		if len(row) < 6 {
			continue
		}
		period, err := time.Parse(periodLayout, row[0])
		if err != nil {
			continue
		}
		id, err := strconv.ParseInt(row[5], 10, 64)
		if err != nil {
			continue
		}
		start, okStart := parseEuros(row[1])
		end, okEnd := parseEuros(row[2])
		transfers, okTransfers := parseEuros(row[3])
		if !okStart || !okEnd || !okTransfers {
			continue
		}
		closedAt, _ := time.Parse(time.RFC3339, row[4])
		out = append(out, core.ClosedMonthSummary{
			MonthID:             id,
			Year:                period.Year(),
			Month:               int(period.Month()),
			PrivateBalanceStart: start,
			PrivateBalanceEnd:   end,
			TotalTransfers:      transfers,
			ClosedAt:            closedAt,
		})
	}
	return out
}

// findMonthRow returns the 1-based sheet row holding monthID, or 0.
func findMonthRow(values [][]any, monthID int64) int {
	want := strconv.FormatInt(monthID, 10)
	for i, raw := range values {
		row := toStrings(raw)
		if len(row) >= 6 && row[5] == want {
			return i + 1
		}
	}
	return 0
}

// parseEuros accepts sheet-formatted amounts such as "1.234,56", "-12,5"
// or "€ 7.00".
func parseEuros(s string) (core.Money, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := core.ParseSignedAmount(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
