package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"splitkasse/internal/core"
)

const monthColumns = `id, year, month, status, private_balance_start_cents, private_balance_end_cents, closed_at, created_at`

func scanMonth(s scanner) (Month, error) {
	var (
		m          Month
		startCents int64
		endCents   sql.NullInt64
		closedAt   sql.NullString
		createdAt  string
	)
	if err := s.Scan(&m.ID, &m.Year, &m.Month, &m.Status, &startCents, &endCents, &closedAt, &createdAt); err != nil {
		return Month{}, err
	}
	m.PrivateBalanceStart = core.FromCents(startCents)
	if endCents.Valid {
		end := core.FromCents(endCents.Int64)
		m.PrivateBalanceEnd = &end
	}
	if closedAt.Valid {
		t, err := parseTime(closedAt.String)
		if err != nil {
			return Month{}, err
		}
		m.ClosedAt = &t
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Month{}, err
	}
	m.CreatedAt = t
	return m, nil
}

func (r *SQLiteRepository) getMonth(ctx context.Context, q querier, where string, args ...any) (Month, error) {
	m, err := scanMonth(q.QueryRowContext(ctx, `SELECT `+monthColumns+` FROM months WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Month{}, ErrNotFound
	}
	if err != nil {
		return Month{}, fmt.Errorf("get month: %w", err)
	}
	return m, nil
}

// EnsureProfiles seeds the two household profiles. Existing names are kept.
func (r *SQLiteRepository) EnsureProfiles(ctx context.Context, meName, partnerName string) error {
	now := r.timestamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (role, name, created_at) VALUES (?, ?, ?), (?, ?, ?)
		 ON CONFLICT (role) DO NOTHING`,
		core.RoleMe, strings.TrimSpace(meName), now,
		core.RolePartner, strings.TrimSpace(partnerName), now,
	)
	if err != nil {
		return fmt.Errorf("seed profiles: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, role, name FROM profiles ORDER BY role`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Role, &p.Name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *SQLiteRepository) ProfileByRole(ctx context.Context, role core.PersonRole) (Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, `SELECT id, role, name FROM profiles WHERE role = ?`, role).Scan(&p.ID, &p.Role, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("profile %s: %w", role, ErrNotFound)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", role, err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpdateProfileName(ctx context.Context, role core.PersonRole, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyLabel
	}
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET name = ? WHERE role = ?`, name, role)
	if err != nil {
		return fmt.Errorf("update profile name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile name: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", role, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) MonthByID(ctx context.Context, id int64) (Month, error) {
	m, err := r.getMonth(ctx, r.db, `id = ?`, id)
	if err != nil {
		return Month{}, fmt.Errorf("month %d: %w", id, err)
	}
	return m, nil
}

func (r *SQLiteRepository) MonthByYearMonth(ctx context.Context, year, month int) (Month, error) {
	m, err := r.getMonth(ctx, r.db, `year = ? AND month = ?`, year, month)
	if err != nil {
		return Month{}, fmt.Errorf("month %04d-%02d: %w", year, month, err)
	}
	return m, nil
}

// CreateMonth inserts an open month unless one already exists for the
// period. It reports whether this call created it.
func (r *SQLiteRepository) CreateMonth(ctx context.Context, year, month int, balanceStart core.Money) (Month, bool, error) {
	if month < 1 || month > 12 {
		return Month{}, false, fmt.Errorf("month %d: %w", month, core.ErrInvalidDate)
	}
	startCents, err := core.ToCents(core.RoundMoney(balanceStart))
	if err != nil {
		return Month{}, false, fmt.Errorf("balance start: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO months (year, month, status, private_balance_start_cents, created_at)
		 VALUES (?, ?, 'open', ?, ?)
		 ON CONFLICT (year, month) DO NOTHING`,
		year, month, startCents, r.timestamp(),
	)
	if err != nil {
		return Month{}, false, fmt.Errorf("create month: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Month{}, false, fmt.Errorf("create month: %w", err)
	}
	m, err := r.MonthByYearMonth(ctx, year, month)
	if err != nil {
		return Month{}, false, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Month created", "month_id", m.ID, "year", year, "month", month, "balance_start", m.PrivateBalanceStart)
	}
	return m, n > 0, nil
}

// LastClosedMonth returns the most recent closed month by period.
func (r *SQLiteRepository) LastClosedMonth(ctx context.Context) (Month, error) {
	m, err := r.getMonth(ctx, r.db, `status = 'closed' ORDER BY year DESC, month DESC LIMIT 1`)
	if err != nil {
		return Month{}, fmt.Errorf("last closed month: %w", err)
	}
	return m, nil
}

const closedSummaryQuery = `
	SELECT m.id, m.year, m.month, m.private_balance_start_cents, COALESCE(m.private_balance_end_cents, 0),
	       COALESCE((SELECT SUM(t.amount_cents) FROM transfers t WHERE t.month_id = m.id), 0),
	       m.closed_at
	FROM months m
	WHERE m.status = 'closed'`

func scanClosedSummary(s scanner) (core.ClosedMonthSummary, error) {
	var (
		sum      core.ClosedMonthSummary
		cents    [3]int64
		closedAt sql.NullString
	)
	if err := s.Scan(&sum.MonthID, &sum.Year, &sum.Month, &cents[0], &cents[1], &cents[2], &closedAt); err != nil {
		return core.ClosedMonthSummary{}, err
	}
	sum.PrivateBalanceStart = core.FromCents(cents[0])
	sum.PrivateBalanceEnd = core.FromCents(cents[1])
	sum.TotalTransfers = core.FromCents(cents[2])
	if closedAt.Valid {
		t, err := parseTime(closedAt.String)
		if err != nil {
			return core.ClosedMonthSummary{}, err
		}
		sum.ClosedAt = t
	}
	return sum, nil
}

// ListClosedMonths returns closed months newest first.
func (r *SQLiteRepository) ListClosedMonths(ctx context.Context, limit int) ([]core.ClosedMonthSummary, error) {
	if limit <= 0 {
		limit = 12
	}
	rows, err := r.db.QueryContext(ctx, closedSummaryQuery+` ORDER BY m.year DESC, m.month DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list closed months: %w", err)
	}
	defer rows.Close()

	var months []core.ClosedMonthSummary
	for rows.Next() {
		sum, err := scanClosedSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed month: %w", err)
		}
		months = append(months, sum)
	}
	return months, rows.Err()
}

// ClosedMonthSummary returns the archive view of one month. Open months
// yield ErrMonthNotClosed.
func (r *SQLiteRepository) ClosedMonthSummary(ctx context.Context, monthID int64) (core.ClosedMonthSummary, error) {
	sum, err := scanClosedSummary(r.db.QueryRowContext(ctx, closedSummaryQuery+` AND m.id = ?`, monthID))
	if err == nil {
		return sum, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.ClosedMonthSummary{}, fmt.Errorf("closed month %d: %w", monthID, err)
	}
	if _, err := r.MonthByID(ctx, monthID); err != nil {
		return core.ClosedMonthSummary{}, err
	}
	return core.ClosedMonthSummary{}, fmt.Errorf("month %d: %w", monthID, ErrMonthNotClosed)
}

// CloseMonth marks an open month closed and records its ending balance.
// Closing is terminal: a closed month is never reopened.
func (r *SQLiteRepository) CloseMonth(ctx context.Context, monthID int64, balanceEnd core.Money) (Month, error) {
	endCents, err := core.ToCents(core.RoundMoney(balanceEnd))
	if err != nil {
		return Month{}, fmt.Errorf("balance end: %w", err)
	}
	var closed Month
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE months SET status = 'closed', private_balance_end_cents = ?, closed_at = ?
			 WHERE id = ? AND status = 'open'`,
			endCents, r.timestamp(), monthID,
		)
		if err != nil {
			return fmt.Errorf("close month: %w", err)
		}
		closed, err = r.getMonth(ctx, tx, `id = ?`, monthID)
		return err
	})
	if err != nil {
		return Month{}, err
	}
	return closed, nil
}

// UpdateBalanceStart overrides the carried-over balance of an open month.
func (r *SQLiteRepository) UpdateBalanceStart(ctx context.Context, monthID int64, balance core.Money) error {
	if err := core.ValidateBalance(balance); err != nil {
		return err
	}
	startCents, err := core.ToCents(core.RoundMoney(balance))
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE months SET private_balance_start_cents = ? WHERE id = ?`,
			startCents, monthID)
		if err != nil {
			return fmt.Errorf("update balance start: %w", err)
		}
		return nil
	})
}

// ResetOpenMonth wipes every record of an open month and zeroes its incomes
// and starting balance.
func (r *SQLiteRepository) ResetOpenMonth(ctx context.Context, monthID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		for _, stmt := range []string{
			`DELETE FROM fixed_categories WHERE month_id = ?`,
			`DELETE FROM private_expenses WHERE month_id = ?`,
			`DELETE FROM transfers WHERE month_id = ?`,
			`UPDATE month_incomes SET net_income_cents = 0 WHERE month_id = ?`,
			`UPDATE months SET private_balance_start_cents = 0, private_balance_end_cents = NULL WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, monthID); err != nil {
				return fmt.Errorf("reset month %d: %w", monthID, err)
			}
		}
		return nil
	})
}

// DeleteClosedMonth removes a closed month and everything recorded in it.
func (r *SQLiteRepository) DeleteClosedMonth(ctx context.Context, monthID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		m, err := r.getMonth(ctx, tx, `id = ?`, monthID)
		if err != nil {
			return fmt.Errorf("month %d: %w", monthID, err)
		}
		if !m.IsClosed() {
			return fmt.Errorf("month %d: %w", monthID, ErrMonthNotClosed)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM months WHERE id = ?`, monthID); err != nil {
			return fmt.Errorf("delete month %d: %w", monthID, err)
		}
		return nil
	})
}

// EnsureMonthIncomes creates a zero income row for every profile that has
// none yet and returns all income rows of the month.
func (r *SQLiteRepository) EnsureMonthIncomes(ctx context.Context, monthID int64) ([]MonthIncome, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO month_incomes (month_id, profile_id, net_income_cents)
		 SELECT ?, id, 0 FROM profiles WHERE true
		 ON CONFLICT (month_id, profile_id) DO NOTHING`,
		monthID,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure month incomes: %w", err)
	}
	return r.ListMonthIncomes(ctx, monthID)
}

func (r *SQLiteRepository) ListMonthIncomes(ctx context.Context, monthID int64) ([]MonthIncome, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT mi.month_id, mi.profile_id, p.role, mi.net_income_cents
		 FROM month_incomes mi JOIN profiles p ON p.id = mi.profile_id
		 WHERE mi.month_id = ? ORDER BY p.role`, monthID)
	if err != nil {
		return nil, fmt.Errorf("list month incomes: %w", err)
	}
	defer rows.Close()

	var incomes []MonthIncome
	for rows.Next() {
		var (
			in    MonthIncome
			cents int64
		)
		if err := rows.Scan(&in.MonthID, &in.ProfileID, &in.Role, &cents); err != nil {
			return nil, fmt.Errorf("scan month income: %w", err)
		}
		in.NetIncome = core.FromCents(cents)
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

// UpdateMonthIncome sets one profile's net income for an open month.
func (r *SQLiteRepository) UpdateMonthIncome(ctx context.Context, monthID, profileID int64, netIncome core.Money) error {
	if err := core.ValidateIncome(netIncome); err != nil {
		return err
	}
	incomeCents, err := core.ToCents(core.RoundMoney(netIncome))
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, monthID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE month_incomes SET net_income_cents = ? WHERE month_id = ? AND profile_id = ?`,
			incomeCents, monthID, profileID,
		)
		if err != nil {
			return fmt.Errorf("update income for profile %d: %w", profileID, err)
		}
		return affectedOrNotFound(res, "profile", profileID)
	})
}
