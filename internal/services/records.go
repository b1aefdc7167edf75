package services

import (
	"context"

	"splitkasse/internal/core"
	"splitkasse/internal/storage"
)

// Writes to a month's records. Each one drops the month's cached overview;
// child rows are resolved to their month before the write so a failed
// write still leaves the cache consistent.

func (s *MonthService) CreateCategory(ctx context.Context, monthID int64, label string) (core.FixedCategory, error) {
	defer s.invalidate(monthID)
	return s.repo.CreateFixedCategory(ctx, monthID, label)
}

func (s *MonthService) DeleteCategory(ctx context.Context, categoryID int64) error {
	monthID, err := s.repo.FixedCategoryMonth(ctx, categoryID)
	if err != nil {
		return err
	}
	defer s.invalidate(monthID)
	return s.repo.DeleteFixedCategory(ctx, categoryID)
}

func (s *MonthService) CreateItem(ctx context.Context, categoryID int64, item core.FixedItem, createdBy int64) (core.FixedItem, error) {
	monthID, err := s.repo.FixedCategoryMonth(ctx, categoryID)
	if err != nil {
		return core.FixedItem{}, err
	}
	defer s.invalidate(monthID)
	return s.repo.CreateFixedItem(ctx, categoryID, item, createdBy)
}

func (s *MonthService) UpdateItem(ctx context.Context, itemID int64, patch storage.ItemPatch) (core.FixedItem, error) {
	monthID, err := s.repo.FixedItemMonth(ctx, itemID)
	if err != nil {
		return core.FixedItem{}, err
	}
	defer s.invalidate(monthID)
	return s.repo.UpdateFixedItem(ctx, itemID, patch)
}

func (s *MonthService) DeleteItem(ctx context.Context, itemID int64) error {
	monthID, err := s.repo.FixedItemMonth(ctx, itemID)
	if err != nil {
		return err
	}
	defer s.invalidate(monthID)
	return s.repo.DeleteFixedItem(ctx, itemID)
}

func (s *MonthService) CreateExpense(ctx context.Context, monthID int64, e core.PrivateExpense, createdBy int64) (core.PrivateExpense, error) {
	defer s.invalidate(monthID)
	return s.repo.CreatePrivateExpense(ctx, monthID, e, createdBy)
}

func (s *MonthService) DeleteExpense(ctx context.Context, expenseID int64) error {
	monthID, err := s.repo.PrivateExpenseMonth(ctx, expenseID)
	if err != nil {
		return err
	}
	defer s.invalidate(monthID)
	return s.repo.DeletePrivateExpense(ctx, expenseID)
}

func (s *MonthService) CreateTransfer(ctx context.Context, monthID int64, t core.Transfer, createdBy int64) (storage.Transfer, error) {
	defer s.invalidate(monthID)
	return s.repo.CreateTransfer(ctx, monthID, t, createdBy)
}

func (s *MonthService) DeleteTransfer(ctx context.Context, transferID int64) error {
	monthID, err := s.repo.TransferMonth(ctx, transferID)
	if err != nil {
		return err
	}
	defer s.invalidate(monthID)
	return s.repo.DeleteTransfer(ctx, transferID)
}

// Templates are month-independent and never cached.

func (s *MonthService) Templates(ctx context.Context) ([]storage.TemplateCategory, error) {
	return s.repo.ListTemplateCategories(ctx)
}

func (s *MonthService) CreateTemplateCategory(ctx context.Context, label string) (storage.TemplateCategory, error) {
	return s.repo.CreateTemplateCategory(ctx, label)
}

func (s *MonthService) CreateTemplateItem(ctx context.Context, categoryID int64, item core.FixedItem) (storage.TemplateItem, error) {
	return s.repo.CreateTemplateItem(ctx, categoryID, item)
}

func (s *MonthService) UpdateTemplateItem(ctx context.Context, itemID int64, patch storage.ItemPatch) (storage.TemplateItem, error) {
	return s.repo.UpdateTemplateItem(ctx, itemID, patch)
}

func (s *MonthService) DeleteTemplateCategory(ctx context.Context, categoryID int64) error {
	return s.repo.DeleteTemplateCategory(ctx, categoryID)
}

func (s *MonthService) DeleteTemplateItem(ctx context.Context, itemID int64) error {
	return s.repo.DeleteTemplateItem(ctx, itemID)
}

// ApplyTemplates copies the templates into an open month.
func (s *MonthService) ApplyTemplates(ctx context.Context, monthID int64) error {
	defer s.invalidate(monthID)
	return s.repo.CopyTemplatesToMonth(ctx, monthID)
}

// ItemMonth returns the month a fixed item belongs to.
func (s *MonthService) ItemMonth(ctx context.Context, itemID int64) (int64, error) {
	return s.repo.FixedItemMonth(ctx, itemID)
}
