package sheets

import (
	"context"

	"splitkasse/internal/core"
)

// Ports for outbound archive adapters.
type (
	// ArchiveWriter appends one row per closed month to an external archive.
	ArchiveWriter interface {
		AppendClosedMonth(ctx context.Context, summary core.ClosedMonthSummary) error
	}

	// ArchiveReader lists the archived months of a year, in archive order.
	ArchiveReader interface {
		ListArchived(ctx context.Context, year int) ([]core.ClosedMonthSummary, error)
	}
)
