package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"splitkasse/internal/core"
)

const monthOfTransfer = `SELECT month_id FROM transfers WHERE id = ?`

// ListTransfers returns a month's transfers, newest first.
func (r *SQLiteRepository) ListTransfers(ctx context.Context, monthID int64) ([]Transfer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, month_id, amount_cents, description, created_by, created_at FROM transfers
		 WHERE month_id = ? ORDER BY created_at DESC, id DESC`, monthID)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var (
			t         Transfer
			cents     int64
			createdBy sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.MonthID, &cents, &t.Description, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.Amount = core.FromCents(cents)
		t.CreatedBy = createdBy.Int64
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func (r *SQLiteRepository) CreateTransfer(ctx context.Context, monthID int64, t core.Transfer, createdBy int64) (Transfer, error) {
	t.Description = strings.TrimSpace(t.Description)
	t.Amount = core.RoundMoney(t.Amount)
	if err := t.Validate(); err != nil {
		return Transfer{}, err
	}
	amountCents, err := core.ToCents(t.Amount)
	if err != nil {
		return Transfer{}, err
	}

	created := Transfer{Transfer: t, MonthID: monthID, CreatedBy: createdBy, CreatedAt: r.now().UTC()}
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO transfers (month_id, amount_cents, description, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			monthID, amountCents, t.Description, nullableID(createdBy), formatTime(created.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		created.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Transfer{}, err
	}
	return created, nil
}

func (r *SQLiteRepository) DeleteTransfer(ctx context.Context, transferID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		monthID, err := monthOf(ctx, tx, monthOfTransfer, transferID)
		if err != nil {
			return fmt.Errorf("transfer %d: %w", transferID, err)
		}
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM transfers WHERE id = ?`, transferID)
		if err != nil {
			return fmt.Errorf("delete transfer: %w", err)
		}
		return affectedOrNotFound(res, "transfer", transferID)
	})
}

// TransferMonth returns the id of the month a transfer belongs to.
func (r *SQLiteRepository) TransferMonth(ctx context.Context, transferID int64) (int64, error) {
	monthID, err := monthOf(ctx, r.db, monthOfTransfer, transferID)
	if errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("transfer %d: %w", transferID, err)
	}
	return monthID, err
}

// TotalTransfers is the month's prepayment: the rounded sum of its transfers.
func (r *SQLiteRepository) TotalTransfers(ctx context.Context, monthID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transfers WHERE month_id = ?`, monthID).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("total transfers: %w", err)
	}
	return core.RoundMoney(core.FromCents(cents)), nil
}

// SumTransfers is the in-memory counterpart of TotalTransfers.
func SumTransfers(transfers []Transfer) core.Money {
	var total float64
	for _, t := range transfers {
		total += t.Amount
	}
	return core.RoundMoney(total)
}
