package storage

import (
	"context"
	"errors"
	"testing"

	"splitkasse/internal/core"
)

func TestFixedCategoriesAndItems(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 1, 0)

	housing, err := repo.CreateFixedCategory(ctx, m.ID, "  Housing ")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if housing.Label != "Housing" {
		t.Errorf("label = %q, want trimmed", housing.Label)
	}
	insurance, err := repo.CreateFixedCategory(ctx, m.ID, "Insurance")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := repo.CreateFixedCategory(ctx, m.ID, " "); !errors.Is(err, core.ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel, got %v", err)
	}

	rent, err := repo.CreateFixedItem(ctx, housing.ID, core.FixedItem{Label: "Rent", Amount: 1200, SplitMode: core.SplitIncome}, 0)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	legacy, err := repo.CreateFixedItem(ctx, housing.ID, core.FixedItem{Label: "Power", Amount: 80.456, SplitMode: "half"}, 0)
	if err != nil {
		t.Fatalf("create legacy item: %v", err)
	}
	if legacy.SplitMode != core.SplitIncome || legacy.Amount != 80.46 {
		t.Fatalf("legacy item not normalised: %+v", legacy)
	}
	if _, err := repo.CreateFixedItem(ctx, insurance.ID, core.FixedItem{Label: "Car", Amount: 45, SplitMode: core.SplitMe}, 0); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := repo.CreateFixedItem(ctx, housing.ID, core.FixedItem{Label: "Bad", Amount: -1, SplitMode: core.SplitMe}, 0); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := repo.CreateFixedItem(ctx, 999, core.FixedItem{Label: "X", Amount: 1, SplitMode: core.SplitMe}, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown category, got %v", err)
	}

	categories, err := repo.ListFixedCategories(ctx, m.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 || categories[0].ID != housing.ID || categories[1].ID != insurance.ID {
		t.Fatalf("unexpected categories: %+v", categories)
	}
	if len(categories[0].Items) != 2 || categories[0].Items[0].ID != rent.ID {
		t.Fatalf("unexpected housing items: %+v", categories[0].Items)
	}
	if got := core.SumFixedCosts(categories); got != 1325.46 {
		t.Fatalf("SumFixedCosts = %v, want 1325.46", got)
	}

	monthID, err := repo.FixedItemMonth(ctx, rent.ID)
	if err != nil || monthID != m.ID {
		t.Fatalf("FixedItemMonth = %d, %v", monthID, err)
	}

	if err := repo.DeleteFixedCategory(ctx, housing.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if _, err := repo.FixedItemMonth(ctx, rent.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected items to be deleted with their category, got %v", err)
	}
	if err := repo.DeleteFixedCategory(ctx, housing.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateFixedItem(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 2, 0)
	cat, _ := repo.CreateFixedCategory(ctx, m.ID, "Housing")
	item, err := repo.CreateFixedItem(ctx, cat.ID, core.FixedItem{Label: "Rent", Amount: 1000, SplitMode: core.SplitIncome}, 0)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	unchanged, err := repo.UpdateFixedItem(ctx, item.ID, ItemPatch{})
	if err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if unchanged != item {
		t.Fatalf("empty patch changed the item: %+v", unchanged)
	}

	amount := core.Money(1100)
	mode := core.SplitMe
	updated, err := repo.UpdateFixedItem(ctx, item.ID, ItemPatch{Amount: &amount, SplitMode: &mode})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if updated.Label != "Rent" || updated.Amount != 1100 || updated.SplitMode != core.SplitMe {
		t.Fatalf("unexpected item after patch: %+v", updated)
	}

	legacy := core.SplitMode("half")
	updated, err = repo.UpdateFixedItem(ctx, item.ID, ItemPatch{SplitMode: &legacy})
	if err != nil {
		t.Fatalf("legacy patch: %v", err)
	}
	if updated.SplitMode != core.SplitIncome {
		t.Fatalf("half should be stored as income, got %q", updated.SplitMode)
	}

	bogus := core.SplitMode("quarter")
	if _, err := repo.UpdateFixedItem(ctx, item.ID, ItemPatch{SplitMode: &bogus}); !errors.Is(err, core.ErrInvalidSplitMode) {
		t.Fatalf("expected ErrInvalidSplitMode, got %v", err)
	}
	empty := "  "
	if _, err := repo.UpdateFixedItem(ctx, item.ID, ItemPatch{Label: &empty}); !errors.Is(err, core.ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel, got %v", err)
	}
	negative := core.Money(-3)
	if _, err := repo.UpdateFixedItem(ctx, item.ID, ItemPatch{Amount: &negative}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := repo.UpdateFixedItem(ctx, 999, ItemPatch{Amount: &amount}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.DeleteFixedItem(ctx, item.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if err := repo.DeleteFixedItem(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrivateExpenses(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 3, 0)

	first, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Date: core.NewDate(2025, 3, 9), Description: " Groceries ", Amount: 42.1}, 0)
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Date: core.NewDate(2025, 3, 1), Description: "Pharmacy", Amount: 7.9}, 0); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Description: "No date", Amount: 1}, 0); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	expenses, err := repo.ListPrivateExpenses(ctx, m.ID)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 2 || expenses[0].ID != first.ID || expenses[0].Description != "Groceries" {
		t.Fatalf("unexpected expenses: %+v", expenses)
	}
	if expenses[0].Date.ISO() != "2025-03-09" {
		t.Fatalf("date = %q", expenses[0].Date.ISO())
	}
	if got := core.SumPrivateExpenses(expenses); got != 50 {
		t.Fatalf("SumPrivateExpenses = %v, want 50", got)
	}

	if err := repo.DeletePrivateExpense(ctx, first.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if _, err := repo.PrivateExpenseMonth(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransfers(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 4, 0)
	me, _ := repo.ProfileByRole(ctx, core.RoleMe)

	older, err := repo.CreateTransfer(ctx, m.ID, core.Transfer{Amount: 0.1, Description: "first"}, me.ID)
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	newer, err := repo.CreateTransfer(ctx, m.ID, core.Transfer{Amount: 0.2}, 0)
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if _, err := repo.CreateTransfer(ctx, m.ID, core.Transfer{Amount: -1}, 0); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	transfers, err := repo.ListTransfers(ctx, m.ID)
	if err != nil {
		t.Fatalf("list transfers: %v", err)
	}
	if len(transfers) != 2 || transfers[0].ID != newer.ID || transfers[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", transfers)
	}
	if transfers[1].CreatedBy != me.ID || transfers[0].CreatedBy != 0 {
		t.Fatalf("unexpected creators: %d, %d", transfers[1].CreatedBy, transfers[0].CreatedBy)
	}

	total, err := repo.TotalTransfers(ctx, m.ID)
	if err != nil {
		t.Fatalf("total transfers: %v", err)
	}
	if total != 0.3 || SumTransfers(transfers) != 0.3 {
		t.Fatalf("total = %v, in-memory = %v, want 0.3", total, SumTransfers(transfers))
	}

	if err := repo.DeleteTransfer(ctx, older.ID); err != nil {
		t.Fatalf("delete transfer: %v", err)
	}
	if total, _ := repo.TotalTransfers(ctx, m.ID); total != 0.2 {
		t.Fatalf("total after delete = %v, want 0.2", total)
	}
	if err := repo.DeleteTransfer(ctx, older.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplates(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	housing, err := repo.CreateTemplateCategory(ctx, "Housing")
	if err != nil {
		t.Fatalf("create template category: %v", err)
	}
	media, err := repo.CreateTemplateCategory(ctx, "Media")
	if err != nil {
		t.Fatalf("create template category: %v", err)
	}
	if housing.SortOrder != 0 || media.SortOrder != 1 {
		t.Fatalf("sort orders = %d, %d", housing.SortOrder, media.SortOrder)
	}

	rent, err := repo.CreateTemplateItem(ctx, housing.ID, core.FixedItem{Label: "Rent", Amount: 1200, SplitMode: core.SplitIncome})
	if err != nil {
		t.Fatalf("create template item: %v", err)
	}
	if _, err := repo.CreateTemplateItem(ctx, media.ID, core.FixedItem{Label: "Streaming", Amount: 12.99, SplitMode: core.SplitPartner}); err != nil {
		t.Fatalf("create template item: %v", err)
	}
	if _, err := repo.CreateTemplateItem(ctx, 999, core.FixedItem{Label: "X", Amount: 1, SplitMode: core.SplitMe}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	amount := core.Money(1250)
	updated, err := repo.UpdateTemplateItem(ctx, rent.ID, ItemPatch{Amount: &amount})
	if err != nil {
		t.Fatalf("update template item: %v", err)
	}
	if updated.Amount != 1250 || updated.Label != "Rent" || updated.CategoryID != housing.ID {
		t.Fatalf("unexpected template item: %+v", updated)
	}

	templates, err := repo.ListTemplateCategories(ctx)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != 2 || len(templates[0].Items) != 1 || templates[0].Items[0].Amount != 1250 {
		t.Fatalf("unexpected templates: %+v", templates)
	}

	m := createMonth(t, repo, 2025, 5, 0)
	if err := repo.CopyTemplatesToMonth(ctx, m.ID); err != nil {
		t.Fatalf("copy templates: %v", err)
	}
	categories, err := repo.ListFixedCategories(ctx, m.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 || categories[0].Label != "Housing" || categories[1].Items[0].SplitMode != core.SplitPartner {
		t.Fatalf("unexpected copied categories: %+v", categories)
	}

	// Deleting a template leaves the month's copy untouched.
	if err := repo.DeleteTemplateCategory(ctx, housing.ID); err != nil {
		t.Fatalf("delete template category: %v", err)
	}
	categories, _ = repo.ListFixedCategories(ctx, m.ID)
	if len(categories) != 2 || categories[0].Items[0].Amount != 1250 {
		t.Fatalf("copy should survive template deletion: %+v", categories)
	}

	if err := repo.DeleteTemplateItem(ctx, rent.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("template items should cascade with their category, got %v", err)
	}
}

func TestMonthHistory(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	m := createMonth(t, repo, 2025, 6, 0)
	me, _ := repo.ProfileByRole(ctx, core.RoleMe)
	partner, _ := repo.ProfileByRole(ctx, core.RolePartner)

	empty, err := repo.MonthHistory(ctx, m.ID, true)
	if err != nil {
		t.Fatalf("empty history: %v", err)
	}
	if empty.TotalCount != 0 || len(empty.Last5) != 0 {
		t.Fatalf("expected empty history, got %+v", empty)
	}

	cat, _ := repo.CreateFixedCategory(ctx, m.ID, "Housing")
	for i := 0; i < 4; i++ {
		if _, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Date: core.NewDate(2025, 6, 1+i), Description: "Expense", Amount: core.Money(i + 1)}, me.ID); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}
	item, err := repo.CreateFixedItem(ctx, cat.ID, core.FixedItem{Label: "Rent", Amount: 900, SplitMode: core.SplitIncome}, partner.ID)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := repo.CreatePrivateExpense(ctx, m.ID, core.PrivateExpense{Date: core.NewDate(2025, 6, 9), Description: "Latest", Amount: 9}, 0); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	history, err := repo.MonthHistory(ctx, m.ID, false)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.TotalCount != 6 || len(history.Last5) != 5 || history.Full != nil {
		t.Fatalf("unexpected history shape: total=%d last5=%d full=%v", history.TotalCount, len(history.Last5), history.Full)
	}
	if history.Last5[0].Description != "Latest" || history.Last5[0].CreatedByName != "" {
		t.Fatalf("newest entry = %+v", history.Last5[0])
	}
	second := history.Last5[1]
	if second.Kind != core.HistoryFixedItem || second.ID != item.ID || second.CreatedByName != "Sam" || second.Amount != 900 {
		t.Fatalf("fixed item entry = %+v", second)
	}
	if history.Last5[2].CreatedByName != "Alex" {
		t.Fatalf("expense creator = %q", history.Last5[2].CreatedByName)
	}

	full, err := repo.MonthHistory(ctx, m.ID, true)
	if err != nil {
		t.Fatalf("full history: %v", err)
	}
	if len(full.Full) != 6 || full.Full[5].Amount != 1 {
		t.Fatalf("unexpected full history: %+v", full.Full)
	}
}
