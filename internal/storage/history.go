package storage

import (
	"context"
	"fmt"

	"splitkasse/internal/core"
)

const historyPreview = 5

const historyQuery = `
	SELECT e.id, 'private_expense', e.description, e.amount_cents, e.created_at, COALESCE(p.name, '')
	FROM private_expenses e
	LEFT JOIN profiles p ON p.id = e.created_by
	WHERE e.month_id = ?
	UNION ALL
	SELECT i.id, 'fixed_item', i.label, i.amount_cents, i.created_at, COALESCE(p.name, '')
	FROM fixed_items i
	JOIN fixed_categories c ON c.id = i.category_id
	LEFT JOIN profiles p ON p.id = i.created_by
	WHERE c.month_id = ?
	ORDER BY 5 DESC, 1 DESC`

// MonthHistory merges a month's private expenses and fixed items into one
// feed, newest first. Full is only filled when full is true.
func (r *SQLiteRepository) MonthHistory(ctx context.Context, monthID int64, full bool) (core.MonthHistory, error) {
	rows, err := r.db.QueryContext(ctx, historyQuery, monthID, monthID)
	if err != nil {
		return core.MonthHistory{}, fmt.Errorf("month history: %w", err)
	}
	defer rows.Close()

	var positions []core.HistoryPosition
	for rows.Next() {
		var (
			p         core.HistoryPosition
			cents     int64
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Kind, &p.Description, &cents, &createdAt, &p.CreatedByName); err != nil {
			return core.MonthHistory{}, fmt.Errorf("scan history position: %w", err)
		}
		p.Amount = core.FromCents(cents)
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return core.MonthHistory{}, err
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return core.MonthHistory{}, err
	}

	history := core.MonthHistory{
		Last5:      positions[:min(historyPreview, len(positions))],
		TotalCount: len(positions),
	}
	if full {
		history.Full = positions
	}
	return history, nil
}
