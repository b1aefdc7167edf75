package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"splitkasse/internal/amqp"
	"splitkasse/internal/core"
	"splitkasse/internal/sheets"
	"splitkasse/internal/storage"
)

// ClosedMonthSource is the slice of the repository the worker reads from.
type ClosedMonthSource interface {
	ClosedMonthSummary(ctx context.Context, monthID int64) (core.ClosedMonthSummary, error)
	ListClosedMonths(ctx context.Context, limit int) ([]core.ClosedMonthSummary, error)
}

// ArchiveWorker copies closed months from SQLite to the external archive.
type ArchiveWorker struct {
	storage   ClosedMonthSource
	archive   sheets.ArchiveWriter
	batchSize int
}

func NewArchiveWorker(storage ClosedMonthSource, archive sheets.ArchiveWriter, batchSize int) *ArchiveWorker {
	if batchSize <= 0 {
		batchSize = 12
	}
	return &ArchiveWorker{
		storage:   storage,
		archive:   archive,
		batchSize: batchSize,
	}
}

// HandleMonthClosed archives the month named by a month-closed message.
// Months that no longer exist or are not closed are acknowledged and skipped.
func (w *ArchiveWorker) HandleMonthClosed(ctx context.Context, msg *amqp.MonthClosedMessage) error {
	slog.InfoContext(ctx, "Processing month closed message",
		"month_id", msg.MonthID,
		"year", msg.Year,
		"month", msg.Month)

	summary, err := w.storage.ClosedMonthSummary(ctx, msg.MonthID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		slog.WarnContext(ctx, "Month no longer exists, skipping archive", "month_id", msg.MonthID)
		return nil
	case errors.Is(err, storage.ErrMonthNotClosed):
		slog.WarnContext(ctx, "Month is not closed, skipping archive", "month_id", msg.MonthID)
		return nil
	case err != nil:
		return fmt.Errorf("load closed month: %w", err)
	}

	return w.archiveMonth(ctx, summary)
}

// StartupArchiveCheck re-archives the most recent closed months. Archive
// writers overwrite existing rows, so months that were already archived are
// unaffected; months whose events were lost get their row.
func (w *ArchiveWorker) StartupArchiveCheck(ctx context.Context) error {
	months, err := w.storage.ListClosedMonths(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list closed months for startup check: %w", err)
	}
	if len(months) == 0 {
		slog.InfoContext(ctx, "No closed months found on startup")
		return nil
	}

	successCount, errorCount := 0, 0
	for _, summary := range months {
		if err := w.archiveMonth(ctx, summary); err != nil {
			slog.ErrorContext(ctx, "Failed to archive month during startup",
				"month_id", summary.MonthID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup archive check completed",
		"total", len(months),
		"archived", successCount,
		"errors", errorCount)
	return nil
}

func (w *ArchiveWorker) archiveMonth(ctx context.Context, summary core.ClosedMonthSummary) error {
	if err := w.archive.AppendClosedMonth(ctx, summary); err != nil {
		return fmt.Errorf("append to archive: %w", err)
	}
	slog.InfoContext(ctx, "Archived closed month",
		"month_id", summary.MonthID,
		"year", summary.Year,
		"month", summary.Month,
		"balance_end", summary.PrivateBalanceEnd)
	return nil
}
