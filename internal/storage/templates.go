package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"splitkasse/internal/core"
)

// ListTemplateCategories returns the fixed-cost templates that seed every
// new month.
func (r *SQLiteRepository) ListTemplateCategories(ctx context.Context) ([]TemplateCategory, error) {
	return listTemplates(ctx, r.db)
}

func listTemplates(ctx context.Context, q querier) ([]TemplateCategory, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, label, sort_order FROM template_categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list template categories: %w", err)
	}
	defer rows.Close()

	var categories []TemplateCategory
	index := make(map[int64]int)
	for rows.Next() {
		var c TemplateCategory
		if err := rows.Scan(&c.ID, &c.Label, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan template category: %w", err)
		}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := q.QueryContext(ctx,
		`SELECT id, template_category_id, label, amount_cents, split_mode, sort_order
		 FROM template_items ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list template items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			item  TemplateItem
			cents int64
			mode  string
		)
		if err := itemRows.Scan(&item.ID, &item.CategoryID, &item.Label, &cents, &mode, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan template item: %w", err)
		}
		item.Amount = core.FromCents(cents)
		item.SplitMode = core.ParseSplitMode(mode)
		if i, ok := index[item.CategoryID]; ok {
			categories[i].Items = append(categories[i].Items, item)
		}
	}
	return categories, itemRows.Err()
}

func (r *SQLiteRepository) CreateTemplateCategory(ctx context.Context, label string) (TemplateCategory, error) {
	label = strings.TrimSpace(label)
	if err := (core.FixedCategory{Label: label}).Validate(); err != nil {
		return TemplateCategory{}, err
	}
	now := r.timestamp()
	created := TemplateCategory{Label: label}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO template_categories (label, sort_order, created_at, updated_at)
		 VALUES (?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM template_categories), ?, ?)
		 RETURNING id, sort_order`,
		label, now, now,
	).Scan(&created.ID, &created.SortOrder)
	if err != nil {
		return TemplateCategory{}, fmt.Errorf("create template category: %w", err)
	}
	return created, nil
}

func (r *SQLiteRepository) CreateTemplateItem(ctx context.Context, categoryID int64, item core.FixedItem) (TemplateItem, error) {
	item.Label = strings.TrimSpace(item.Label)
	item.Amount = core.RoundMoney(item.Amount)
	item.SplitMode = core.ParseSplitMode(string(item.SplitMode))
	if err := item.Validate(); err != nil {
		return TemplateItem{}, err
	}
	amountCents, err := core.ToCents(item.Amount)
	if err != nil {
		return TemplateItem{}, err
	}

	created := TemplateItem{CategoryID: categoryID, Label: item.Label, Amount: item.Amount, SplitMode: item.SplitMode}
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM template_categories WHERE id = ?`, categoryID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("template category %d: %w", categoryID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get template category: %w", err)
		}

		now := r.timestamp()
		return tx.QueryRowContext(ctx,
			`INSERT INTO template_items (template_category_id, label, amount_cents, split_mode, sort_order, created_at, updated_at)
			 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM template_items WHERE template_category_id = ?), ?, ?)
			 RETURNING id, sort_order`,
			categoryID, item.Label, amountCents, item.SplitMode, categoryID, now, now,
		).Scan(&created.ID, &created.SortOrder)
	})
	if err != nil {
		return TemplateItem{}, fmt.Errorf("create template item: %w", err)
	}
	return created, nil
}

func (r *SQLiteRepository) UpdateTemplateItem(ctx context.Context, itemID int64, patch ItemPatch) (TemplateItem, error) {
	var updated TemplateItem
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var (
			cents int64
			mode  string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, template_category_id, label, amount_cents, split_mode, sort_order FROM template_items WHERE id = ?`, itemID,
		).Scan(&updated.ID, &updated.CategoryID, &updated.Label, &cents, &mode, &updated.SortOrder)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("template item %d: %w", itemID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get template item: %w", err)
		}
		if patch.Empty() {
			updated.Amount = core.FromCents(cents)
			updated.SplitMode = core.ParseSplitMode(mode)
			return nil
		}

		next, err := applyPatch(core.FixedItem{
			Label:     updated.Label,
			Amount:    core.FromCents(cents),
			SplitMode: core.ParseSplitMode(mode),
		}, patch)
		if err != nil {
			return err
		}
		amountCents, err := core.ToCents(next.Amount)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE template_items SET label = ?, amount_cents = ?, split_mode = ?, updated_at = ? WHERE id = ?`,
			next.Label, amountCents, next.SplitMode, r.timestamp(), itemID,
		)
		if err != nil {
			return fmt.Errorf("update template item: %w", err)
		}
		updated.Label, updated.Amount, updated.SplitMode = next.Label, next.Amount, next.SplitMode
		return nil
	})
	if err != nil {
		return TemplateItem{}, err
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteTemplateCategory(ctx context.Context, categoryID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM template_categories WHERE id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("delete template category: %w", err)
	}
	return affectedOrNotFound(res, "template category", categoryID)
}

func (r *SQLiteRepository) DeleteTemplateItem(ctx context.Context, itemID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM template_items WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete template item: %w", err)
	}
	return affectedOrNotFound(res, "template item", itemID)
}

// CopyTemplatesToMonth instantiates every template category and item in an
// open month. Copies keep a reference to their template.
func (r *SQLiteRepository) CopyTemplatesToMonth(ctx context.Context, monthID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		templates, err := listTemplates(ctx, tx)
		if err != nil {
			return err
		}

		now := r.timestamp()
		for _, tc := range templates {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO fixed_categories (month_id, label, sort_order, template_category_id, created_at)
				 VALUES (?, ?, ?, ?, ?)`,
				monthID, tc.Label, tc.SortOrder, tc.ID, now,
			)
			if err != nil {
				return fmt.Errorf("copy template category %d: %w", tc.ID, err)
			}
			categoryID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("copy template category %d: %w", tc.ID, err)
			}
			for _, ti := range tc.Items {
				amountCents, err := core.ToCents(ti.Amount)
				if err != nil {
					return fmt.Errorf("copy template item %d: %w", ti.ID, err)
				}
				_, err = tx.ExecContext(ctx,
					`INSERT INTO fixed_items (category_id, label, amount_cents, split_mode, template_item_id, created_at)
					 VALUES (?, ?, ?, ?, ?, ?)`,
					categoryID, ti.Label, amountCents, ti.SplitMode, ti.ID, now,
				)
				if err != nil {
					return fmt.Errorf("copy template item %d: %w", ti.ID, err)
				}
			}
		}
		return nil
	})
}
