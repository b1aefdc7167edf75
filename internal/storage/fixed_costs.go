package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"splitkasse/internal/core"
)

const (
	monthOfCategory = `SELECT month_id FROM fixed_categories WHERE id = ?`
	monthOfItem     = `SELECT c.month_id FROM fixed_items i JOIN fixed_categories c ON c.id = i.category_id WHERE i.id = ?`
)

func scanFixedItem(s scanner) (core.FixedItem, error) {
	var (
		item  core.FixedItem
		cents int64
		mode  string
	)
	if err := s.Scan(&item.ID, &item.Label, &cents, &mode); err != nil {
		return core.FixedItem{}, err
	}
	item.Amount = core.FromCents(cents)
	item.SplitMode = core.ParseSplitMode(mode)
	return item, nil
}

// ListFixedCategories returns a month's categories in display order, each
// with its items in creation order.
func (r *SQLiteRepository) ListFixedCategories(ctx context.Context, monthID int64) ([]core.FixedCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label FROM fixed_categories WHERE month_id = ? ORDER BY sort_order, created_at, id`, monthID)
	if err != nil {
		return nil, fmt.Errorf("list fixed categories: %w", err)
	}
	defer rows.Close()

	var categories []core.FixedCategory
	index := make(map[int64]int)
	for rows.Next() {
		var c core.FixedCategory
		if err := rows.Scan(&c.ID, &c.Label); err != nil {
			return nil, fmt.Errorf("scan fixed category: %w", err)
		}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}

	itemRows, err := r.db.QueryContext(ctx,
		`SELECT i.category_id, i.id, i.label, i.amount_cents, i.split_mode
		 FROM fixed_items i JOIN fixed_categories c ON c.id = i.category_id
		 WHERE c.month_id = ? ORDER BY i.created_at, i.id`, monthID)
	if err != nil {
		return nil, fmt.Errorf("list fixed items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			categoryID int64
			item       core.FixedItem
			cents      int64
			mode       string
		)
		if err := itemRows.Scan(&categoryID, &item.ID, &item.Label, &cents, &mode); err != nil {
			return nil, fmt.Errorf("scan fixed item: %w", err)
		}
		item.Amount = core.FromCents(cents)
		item.SplitMode = core.ParseSplitMode(mode)
		if i, ok := index[categoryID]; ok {
			categories[i].Items = append(categories[i].Items, item)
		}
	}
	return categories, itemRows.Err()
}

// CreateFixedCategory appends a category after the month's last one.
func (r *SQLiteRepository) CreateFixedCategory(ctx context.Context, monthID int64, label string) (core.FixedCategory, error) {
	category := core.FixedCategory{Label: strings.TrimSpace(label)}
	if err := category.Validate(); err != nil {
		return core.FixedCategory{}, err
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO fixed_categories (month_id, label, sort_order, created_at)
			 VALUES (?, ?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM fixed_categories WHERE month_id = ?), ?)`,
			monthID, category.Label, monthID, r.timestamp(),
		)
		if err != nil {
			return fmt.Errorf("create fixed category: %w", err)
		}
		category.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return core.FixedCategory{}, err
	}
	return category, nil
}

// DeleteFixedCategory removes a category and its items.
func (r *SQLiteRepository) DeleteFixedCategory(ctx context.Context, categoryID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		monthID, err := monthOf(ctx, tx, monthOfCategory, categoryID)
		if err != nil {
			return fmt.Errorf("fixed category %d: %w", categoryID, err)
		}
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM fixed_categories WHERE id = ?`, categoryID)
		if err != nil {
			return fmt.Errorf("delete fixed category: %w", err)
		}
		return affectedOrNotFound(res, "fixed category", categoryID)
	})
}

// CreateFixedItem adds an item to a category. Legacy split modes are
// normalised before the item is validated.
func (r *SQLiteRepository) CreateFixedItem(ctx context.Context, categoryID int64, item core.FixedItem, createdBy int64) (core.FixedItem, error) {
	item.Label = strings.TrimSpace(item.Label)
	item.Amount = core.RoundMoney(item.Amount)
	item.SplitMode = core.ParseSplitMode(string(item.SplitMode))
	if err := item.Validate(); err != nil {
		return core.FixedItem{}, err
	}
	amountCents, err := core.ToCents(item.Amount)
	if err != nil {
		return core.FixedItem{}, err
	}

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		monthID, err := monthOf(ctx, tx, monthOfCategory, categoryID)
		if err != nil {
			return fmt.Errorf("fixed category %d: %w", categoryID, err)
		}
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO fixed_items (category_id, label, amount_cents, split_mode, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			categoryID, item.Label, amountCents, item.SplitMode, nullableID(createdBy), r.timestamp(),
		)
		if err != nil {
			return fmt.Errorf("create fixed item: %w", err)
		}
		item.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return core.FixedItem{}, err
	}
	return item, nil
}

// UpdateFixedItem applies a partial patch. An empty patch returns the item
// unchanged.
func (r *SQLiteRepository) UpdateFixedItem(ctx context.Context, itemID int64, patch ItemPatch) (core.FixedItem, error) {
	var updated core.FixedItem
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		monthID, err := monthOf(ctx, tx, monthOfItem, itemID)
		if err != nil {
			return fmt.Errorf("fixed item %d: %w", itemID, err)
		}
		current, err := scanFixedItem(tx.QueryRowContext(ctx,
			`SELECT id, label, amount_cents, split_mode FROM fixed_items WHERE id = ?`, itemID))
		if err != nil {
			return fmt.Errorf("get fixed item %d: %w", itemID, err)
		}
		if patch.Empty() {
			updated = current
			return nil
		}
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}

		next, err := applyPatch(current, patch)
		if err != nil {
			return err
		}
		amountCents, err := core.ToCents(next.Amount)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE fixed_items SET label = ?, amount_cents = ?, split_mode = ? WHERE id = ?`,
			next.Label, amountCents, next.SplitMode, itemID,
		)
		if err != nil {
			return fmt.Errorf("update fixed item: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return core.FixedItem{}, err
	}
	return updated, nil
}

func applyPatch(item core.FixedItem, patch ItemPatch) (core.FixedItem, error) {
	if patch.Label != nil {
		item.Label = strings.TrimSpace(*patch.Label)
	}
	if patch.Amount != nil {
		item.Amount = core.RoundMoney(*patch.Amount)
		if *patch.Amount < 0 {
			return core.FixedItem{}, core.ErrInvalidAmount
		}
	}
	if patch.SplitMode != nil {
		mode, err := core.ParseSplitModeStrict(string(*patch.SplitMode))
		if err != nil {
			return core.FixedItem{}, err
		}
		item.SplitMode = mode
	}
	if err := item.Validate(); err != nil {
		return core.FixedItem{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) DeleteFixedItem(ctx context.Context, itemID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		monthID, err := monthOf(ctx, tx, monthOfItem, itemID)
		if err != nil {
			return fmt.Errorf("fixed item %d: %w", itemID, err)
		}
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM fixed_items WHERE id = ?`, itemID)
		if err != nil {
			return fmt.Errorf("delete fixed item: %w", err)
		}
		return affectedOrNotFound(res, "fixed item", itemID)
	})
}

// FixedItemMonth returns the id of the month an item belongs to.
func (r *SQLiteRepository) FixedItemMonth(ctx context.Context, itemID int64) (int64, error) {
	monthID, err := monthOf(ctx, r.db, monthOfItem, itemID)
	if errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("fixed item %d: %w", itemID, err)
	}
	return monthID, err
}

// FixedCategoryMonth returns the id of the month a category belongs to.
func (r *SQLiteRepository) FixedCategoryMonth(ctx context.Context, categoryID int64) (int64, error) {
	monthID, err := monthOf(ctx, r.db, monthOfCategory, categoryID)
	if errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("fixed category %d: %w", categoryID, err)
	}
	return monthID, err
}
