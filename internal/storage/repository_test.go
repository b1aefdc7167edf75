package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"splitkasse/internal/core"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	// Every call advances the clock so created_at ordering is deterministic.
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	repo.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	if err := repo.EnsureProfiles(context.Background(), "Alex", "Sam"); err != nil {
		t.Fatalf("seed profiles: %v", err)
	}
	return repo
}

func createMonth(t *testing.T, repo *SQLiteRepository, year, month int, start core.Money) Month {
	t.Helper()
	m, created, err := repo.CreateMonth(context.Background(), year, month, start)
	if err != nil {
		t.Fatalf("create month: %v", err)
	}
	if !created {
		t.Fatalf("expected month %d-%d to be created", year, month)
	}
	return m
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	repo.Close()

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("version = %d dirty = %v, want 1 clean", version, dirty)
	}

	// Reopening runs migrations again without error.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	repo.Close()
}

func TestProfiles(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	profiles, err := repo.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}

	// Seeding again keeps existing names.
	if err := repo.EnsureProfiles(ctx, "Other", "Names"); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	me, err := repo.ProfileByRole(ctx, core.RoleMe)
	if err != nil {
		t.Fatalf("profile by role: %v", err)
	}
	if me.Name != "Alex" {
		t.Errorf("name = %q, want Alex", me.Name)
	}

	if err := repo.UpdateProfileName(ctx, core.RolePartner, "  Robin "); err != nil {
		t.Fatalf("update name: %v", err)
	}
	partner, _ := repo.ProfileByRole(ctx, core.RolePartner)
	if partner.Name != "Robin" {
		t.Errorf("name = %q, want Robin", partner.Name)
	}
	if err := repo.UpdateProfileName(ctx, core.RolePartner, " "); !errors.Is(err, core.ErrEmptyLabel) {
		t.Errorf("expected ErrEmptyLabel, got %v", err)
	}
}

func TestCreateMonthIsIdempotent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first := createMonth(t, repo, 2025, 3, 12.34)
	if first.Status != core.MonthOpen || first.PrivateBalanceStart != 12.34 {
		t.Fatalf("unexpected month: %+v", first)
	}

	again, created, err := repo.CreateMonth(ctx, 2025, 3, 999)
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if created || again.ID != first.ID || again.PrivateBalanceStart != 12.34 {
		t.Fatalf("second create should return the existing month, got %+v created=%v", again, created)
	}

	if _, _, err := repo.CreateMonth(ctx, 2025, 13, 0); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestMonthLookupNotFound(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.MonthByID(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("MonthByID: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.MonthByYearMonth(ctx, 2020, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("MonthByYearMonth: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.LastClosedMonth(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LastClosedMonth: expected ErrNotFound, got %v", err)
	}
}

func TestCloseMonth(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 1, 0)

	if _, err := repo.ClosedMonthSummary(ctx, m.ID); !errors.Is(err, ErrMonthNotClosed) {
		t.Fatalf("expected ErrMonthNotClosed for open month, got %v", err)
	}

	closed, err := repo.CloseMonth(ctx, m.ID, 40.004)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.IsClosed() || closed.PrivateBalanceEnd == nil || *closed.PrivateBalanceEnd != 40 || closed.ClosedAt == nil {
		t.Fatalf("unexpected closed month: %+v", closed)
	}

	if _, err := repo.CloseMonth(ctx, m.ID, 1); !errors.Is(err, ErrMonthClosed) {
		t.Fatalf("closing twice: expected ErrMonthClosed, got %v", err)
	}
	if _, err := repo.CloseMonth(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("closing unknown month: expected ErrNotFound, got %v", err)
	}

	last, err := repo.LastClosedMonth(ctx)
	if err != nil || last.ID != m.ID {
		t.Fatalf("last closed = %+v, err %v", last, err)
	}
}

func TestLastClosedMonthUsesPeriodOrder(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	// Close the later period first so creation order differs from period order.
	feb := createMonth(t, repo, 2025, 2, 0)
	jan := createMonth(t, repo, 2025, 1, 0)
	dec := createMonth(t, repo, 2024, 12, 0)
	for _, c := range []struct {
		id  int64
		end core.Money
	}{{feb.ID, 200}, {jan.ID, 100}, {dec.ID, 50}} {
		if _, err := repo.CloseMonth(ctx, c.id, c.end); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	last, err := repo.LastClosedMonth(ctx)
	if err != nil {
		t.Fatalf("last closed: %v", err)
	}
	if last.ID != feb.ID || *last.PrivateBalanceEnd != 200 {
		t.Fatalf("expected February, got %+v", last)
	}

	list, err := repo.ListClosedMonths(ctx, 2)
	if err != nil {
		t.Fatalf("list closed: %v", err)
	}
	if len(list) != 2 || list[0].MonthID != feb.ID || list[1].MonthID != jan.ID {
		t.Fatalf("unexpected archive order: %+v", list)
	}
}

func TestClosedMonthSummaryIncludesTransfers(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 4, 10)

	for _, amount := range []core.Money{100.1, 200.2} {
		if _, err := repo.CreateTransfer(ctx, m.ID, core.Transfer{Amount: amount}, 0); err != nil {
			t.Fatalf("create transfer: %v", err)
		}
	}
	if _, err := repo.CloseMonth(ctx, m.ID, -5.5); err != nil {
		t.Fatalf("close: %v", err)
	}

	sum, err := repo.ClosedMonthSummary(ctx, m.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Year != 2025 || sum.Month != 4 || sum.PrivateBalanceStart != 10 || sum.PrivateBalanceEnd != -5.5 || sum.TotalTransfers != 300.3 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.ClosedAt.IsZero() {
		t.Fatalf("expected closed_at to be set")
	}
}

func TestWritesToClosedMonthAreRejected(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 5, 0)

	cat, err := repo.CreateFixedCategory(ctx, m.ID, "Housing")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	item, err := repo.CreateFixedItem(ctx, cat.ID, core.FixedItem{Label: "Rent", Amount: 1000, SplitMode: core.SplitIncome}, 0)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	expense, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Date: core.NewDate(2025, 5, 2), Description: "Food", Amount: 5}, 0)
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	transfer, err := repo.CreateTransfer(ctx, m.ID, core.Transfer{Amount: 10}, 0)
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	incomes, err := repo.EnsureMonthIncomes(ctx, m.ID)
	if err != nil {
		t.Fatalf("ensure incomes: %v", err)
	}
	if _, err := repo.CloseMonth(ctx, m.ID, 0); err != nil {
		t.Fatalf("close: %v", err)
	}

	amount := core.Money(1)
	writes := map[string]func() error{
		"update income": func() error { return repo.UpdateMonthIncome(ctx, m.ID, incomes[0].ProfileID, 100) },
		"balance start": func() error { return repo.UpdateBalanceStart(ctx, m.ID, 1) },
		"create category": func() error {
			_, err := repo.CreateFixedCategory(ctx, m.ID, "New")
			return err
		},
		"delete category": func() error { return repo.DeleteFixedCategory(ctx, cat.ID) },
		"create item": func() error {
			_, err := repo.CreateFixedItem(ctx, cat.ID, core.FixedItem{Label: "X", Amount: 1, SplitMode: core.SplitMe}, 0)
			return err
		},
		"update item": func() error {
			_, err := repo.UpdateFixedItem(ctx, item.ID, ItemPatch{Amount: &amount})
			return err
		},
		"delete item": func() error { return repo.DeleteFixedItem(ctx, item.ID) },
		"create expense": func() error {
			_, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Date: core.NewDate(2025, 5, 3), Description: "X", Amount: 1}, 0)
			return err
		},
		"delete expense": func() error { return repo.DeletePrivateExpense(ctx, expense.ID) },
		"create transfer": func() error {
			_, err := repo.CreateTransfer(ctx, m.ID, core.Transfer{Amount: 1}, 0)
			return err
		},
		"delete transfer": func() error { return repo.DeleteTransfer(ctx, transfer.ID) },
		"reset":           func() error { return repo.ResetOpenMonth(ctx, m.ID) },
		"copy templates":  func() error { return repo.CopyTemplatesToMonth(ctx, m.ID) },
	}
	for name, write := range writes {
		if err := write(); !errors.Is(err, ErrMonthClosed) {
			t.Errorf("%s: expected ErrMonthClosed, got %v", name, err)
		}
	}
}

func TestMonthIncomes(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 6, 0)

	incomes, err := repo.EnsureMonthIncomes(ctx, m.ID)
	if err != nil {
		t.Fatalf("ensure incomes: %v", err)
	}
	if len(incomes) != 2 || incomes[0].Role != core.RoleMe || incomes[1].Role != core.RolePartner {
		t.Fatalf("unexpected incomes: %+v", incomes)
	}
	for _, in := range incomes {
		if in.NetIncome != 0 {
			t.Fatalf("new income should be 0, got %v", in.NetIncome)
		}
	}

	if err := repo.UpdateMonthIncome(ctx, m.ID, incomes[0].ProfileID, 2000.555); err != nil {
		t.Fatalf("update income: %v", err)
	}
	if err := repo.UpdateMonthIncome(ctx, m.ID, incomes[1].ProfileID, -1); !errors.Is(err, core.ErrInvalidIncome) {
		t.Fatalf("expected ErrInvalidIncome, got %v", err)
	}
	if err := repo.UpdateMonthIncome(ctx, m.ID, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown profile, got %v", err)
	}

	// Ensuring again keeps the stored value.
	incomes, err = repo.EnsureMonthIncomes(ctx, m.ID)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if len(incomes) != 2 || incomes[0].NetIncome != 2000.56 {
		t.Fatalf("unexpected incomes after update: %+v", incomes)
	}
}

func TestUpdateBalanceStartAndReset(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 7, 50)

	if err := repo.UpdateBalanceStart(ctx, m.ID, -12.5); err != nil {
		t.Fatalf("update balance start: %v", err)
	}
	got, _ := repo.MonthByID(ctx, m.ID)
	if got.PrivateBalanceStart != -12.5 {
		t.Fatalf("balance start = %v", got.PrivateBalanceStart)
	}

	cat, _ := repo.CreateFixedCategory(ctx, m.ID, "Housing")
	if _, err := repo.CreateFixedItem(ctx, cat.ID, core.FixedItem{Label: "Rent", Amount: 900, SplitMode: core.SplitIncome}, 0); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Date: core.NewDate(2025, 7, 1), Description: "Food", Amount: 20}, 0); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := repo.CreateTransfer(ctx, m.ID, core.Transfer{Amount: 300}, 0); err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	incomes, _ := repo.EnsureMonthIncomes(ctx, m.ID)
	if err := repo.UpdateMonthIncome(ctx, m.ID, incomes[0].ProfileID, 3000); err != nil {
		t.Fatalf("update income: %v", err)
	}

	if err := repo.ResetOpenMonth(ctx, m.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	categories, _ := repo.ListFixedCategories(ctx, m.ID)
	expenses, _ := repo.ListPrivateExpenses(ctx, m.ID)
	transfers, _ := repo.ListTransfers(ctx, m.ID)
	incomes, _ = repo.ListMonthIncomes(ctx, m.ID)
	got, _ = repo.MonthByID(ctx, m.ID)
	if len(categories) != 0 || len(expenses) != 0 || len(transfers) != 0 {
		t.Fatalf("expected empty month, got %d categories %d expenses %d transfers", len(categories), len(expenses), len(transfers))
	}
	if incomes[0].NetIncome != 0 || got.PrivateBalanceStart != 0 {
		t.Fatalf("expected zeroed incomes and balance, got %+v / %v", incomes, got.PrivateBalanceStart)
	}
}

func TestOutOfRangeAmountsAreRejected(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 8, 40)

	if err := repo.UpdateBalanceStart(ctx, m.ID, 1e17); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("balance start 1e17: err = %v, want ErrInvalidAmount", err)
	}
	got, _ := repo.MonthByID(ctx, m.ID)
	if got.PrivateBalanceStart != 40 {
		t.Fatalf("balance start changed to %v", got.PrivateBalanceStart)
	}

	if _, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Date: core.NewDate(2025, 8, 1), Description: "Yacht", Amount: 1e20}, 0); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expense 1e20: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := repo.CreateTransfer(ctx, m.ID, core.Transfer{Amount: 1e307}, 0); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("transfer 1e307: err = %v, want ErrInvalidAmount", err)
	}
	incomes, _ := repo.EnsureMonthIncomes(ctx, m.ID)
	if err := repo.UpdateMonthIncome(ctx, m.ID, incomes[0].ProfileID, 1e13); !errors.Is(err, core.ErrInvalidIncome) {
		t.Fatalf("income 1e13: err = %v, want ErrInvalidIncome", err)
	}

	cat, _ := repo.CreateFixedCategory(ctx, m.ID, "Housing")
	item, err := repo.CreateFixedItem(ctx, cat.ID, core.FixedItem{Label: "Rent", Amount: 900, SplitMode: core.SplitIncome}, 0)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	huge := core.Money(5e15)
	if _, err := repo.UpdateFixedItem(ctx, item.ID, ItemPatch{Amount: &huge}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("patch 5e15: err = %v, want ErrInvalidAmount", err)
	}

	if _, err := repo.CloseMonth(ctx, m.ID, -1e17); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("close with -1e17: err = %v, want ErrInvalidAmount", err)
	}
	if got, _ := repo.MonthByID(ctx, m.ID); got.IsClosed() {
		t.Fatal("month must stay open after a refused close")
	}
}

func TestDeleteClosedMonth(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 8, 0)

	if err := repo.DeleteClosedMonth(ctx, m.ID); !errors.Is(err, ErrMonthNotClosed) {
		t.Fatalf("expected ErrMonthNotClosed, got %v", err)
	}

	cat, _ := repo.CreateFixedCategory(ctx, m.ID, "Housing")
	if _, err := repo.CreateFixedItem(ctx, cat.ID, core.FixedItem{Label: "Rent", Amount: 900, SplitMode: core.SplitIncome}, 0); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := repo.CloseMonth(ctx, m.ID, 0); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := repo.DeleteClosedMonth(ctx, m.ID); err != nil {
		t.Fatalf("delete closed: %v", err)
	}
	if _, err := repo.MonthByID(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected month to be gone, got %v", err)
	}
	if _, err := repo.FixedCategoryMonth(ctx, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected categories to cascade, got %v", err)
	}
	if err := repo.DeleteClosedMonth(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
