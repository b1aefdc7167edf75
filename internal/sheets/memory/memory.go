package memory

import (
	"context"
	"errors"
	"sync"

	"splitkasse/internal/core"
	ports "splitkasse/internal/sheets"
)

var (
	_ ports.ArchiveWriter = (*Store)(nil)
	_ ports.ArchiveReader = (*Store)(nil)
)

var ErrInvalidSummary = errors.New("closed month summary needs a month id and a period")

// Store keeps archived months in memory. Appending a month that is already
// archived replaces the earlier row, so redelivered events stay idempotent.
type Store struct {
	mu   sync.Mutex
	rows []core.ClosedMonthSummary
}

func New() *Store {
	return &Store{}
}

func (s *Store) AppendClosedMonth(_ context.Context, summary core.ClosedMonthSummary) error {
	if summary.MonthID == 0 || summary.Year == 0 || summary.Month < 1 || summary.Month > 12 {
		return ErrInvalidSummary
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.MonthID == summary.MonthID {
			s.rows[i] = summary
			return nil
		}
	}
	s.rows = append(s.rows, summary)
	return nil
}

func (s *Store) ListArchived(_ context.Context, year int) ([]core.ClosedMonthSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ClosedMonthSummary
	for _, row := range s.rows {
		if row.Year == year {
			out = append(out, row)
		}
	}
	return out, nil
}

// Len returns the number of archived months across all years.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
