package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"splitkasse/internal/core"
)

const monthOfExpense = `SELECT month_id FROM private_expenses WHERE id = ?`

// ListPrivateExpenses returns a month's private expenses in entry order.
func (r *SQLiteRepository) ListPrivateExpenses(ctx context.Context, monthID int64) ([]core.PrivateExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, description, amount_cents FROM private_expenses
		 WHERE month_id = ? ORDER BY created_at, id`, monthID)
	if err != nil {
		return nil, fmt.Errorf("list private expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.PrivateExpense
	for rows.Next() {
		var (
			e     core.PrivateExpense
			date  string
			cents int64
		)
		if err := rows.Scan(&e.ID, &date, &e.Description, &cents); err != nil {
			return nil, fmt.Errorf("scan private expense: %w", err)
		}
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("private expense %d: %w", e.ID, core.ErrInvalidDate)
		}
		e.Date = core.Date{Time: d}
		e.Amount = core.FromCents(cents)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) CreatePrivateExpense(ctx context.Context, monthID int64, e core.PrivateExpense, createdBy int64) (core.PrivateExpense, error) {
	e.Description = strings.TrimSpace(e.Description)
	e.Amount = core.RoundMoney(e.Amount)
	if err := e.Validate(); err != nil {
		return core.PrivateExpense{}, err
	}
	amountCents, err := core.ToCents(e.Amount)
	if err != nil {
		return core.PrivateExpense{}, err
	}

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO private_expenses (month_id, date, description, amount_cents, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			monthID, e.Date.ISO(), e.Description, amountCents, nullableID(createdBy), r.timestamp(),
		)
		if err != nil {
			return fmt.Errorf("create private expense: %w", err)
		}
		e.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return core.PrivateExpense{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) DeletePrivateExpense(ctx context.Context, expenseID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		monthID, err := monthOf(ctx, tx, monthOfExpense, expenseID)
		if err != nil {
			return fmt.Errorf("private expense %d: %w", expenseID, err)
		}
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM private_expenses WHERE id = ?`, expenseID)
		if err != nil {
			return fmt.Errorf("delete private expense: %w", err)
		}
		return affectedOrNotFound(res, "private expense", expenseID)
	})
}

// PrivateExpenseMonth returns the id of the month an expense belongs to.
func (r *SQLiteRepository) PrivateExpenseMonth(ctx context.Context, expenseID int64) (int64, error) {
	monthID, err := monthOf(ctx, r.db, monthOfExpense, expenseID)
	if errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("private expense %d: %w", expenseID, err)
	}
	return monthID, err
}
