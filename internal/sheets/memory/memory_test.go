package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"splitkasse/internal/core"
)

func TestMemoryStoreAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()
	closedAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	for _, sum := range []core.ClosedMonthSummary{
		{MonthID: 1, Year: 2024, Month: 12, PrivateBalanceEnd: 100, ClosedAt: closedAt},
		{MonthID: 2, Year: 2025, Month: 1, PrivateBalanceStart: 100, PrivateBalanceEnd: 580, ClosedAt: closedAt},
	} {
		if err := s.AppendClosedMonth(ctx, sum); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	rows, err := s.ListArchived(ctx, 2025)
	if err != nil || len(rows) != 1 || rows[0].PrivateBalanceEnd != 580 {
		t.Fatalf("unexpected rows: %+v err=%v", rows, err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
}

func TestMemoryStoreReplacesRedeliveredMonth(t *testing.T) {
	s := New()
	ctx := context.Background()
	sum := core.ClosedMonthSummary{MonthID: 7, Year: 2025, Month: 3, PrivateBalanceEnd: 10}

	if err := s.AppendClosedMonth(ctx, sum); err != nil {
		t.Fatalf("append: %v", err)
	}
	sum.PrivateBalanceEnd = 12
	if err := s.AppendClosedMonth(ctx, sum); err != nil {
		t.Fatalf("append again: %v", err)
	}

	rows, _ := s.ListArchived(ctx, 2025)
	if len(rows) != 1 || rows[0].PrivateBalanceEnd != 12 {
		t.Fatalf("expected a single replaced row, got %+v", rows)
	}
}

func TestMemoryStoreRejectsInvalidSummary(t *testing.T) {
	s := New()
	err := s.AppendClosedMonth(context.Background(), core.ClosedMonthSummary{MonthID: 1, Year: 2025, Month: 13})
	if !errors.Is(err, ErrInvalidSummary) {
		t.Fatalf("expected ErrInvalidSummary, got %v", err)
	}
}
