package http

import (
	"context"
	"net/http"

	"splitkasse/internal/core"
	"splitkasse/internal/log"
	"splitkasse/internal/storage"
)

// creatorID resolves the optional "createdBy" role of a request to a
// profile id.
func (s *Server) creatorID(ctx context.Context, raw string) (int64, error) {
	role, err := parseRole(raw)
	if err != nil {
		return 0, err
	}
	profiles, err := s.svc.Profiles(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range profiles {
		if p.Role == role {
			return p.ID, nil
		}
	}
	return 0, nil
}

// deleteByID serves the DELETE endpoints, which all answer 204.
func (s *Server) deleteByID(del func(context.Context, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.writeError(w, r, log.OpDelete, err)
			return
		}
		if err := del(r.Context(), id); err != nil {
			s.writeError(w, r, log.OpDelete, err)
			return
		}
		NewJSONResponse().Status(http.StatusNoContent).Write(w)
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	monthID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req labelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	category, err := s.svc.CreateCategory(r.Context(), monthID, sanitizeInput(req.Label))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toFixedCategoryDTO(category, 0)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(s.svc.DeleteCategory)(w, r)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	mode, err := core.ParseSplitModeStrict(req.SplitMode)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	createdBy, err := s.creatorID(r.Context(), req.CreatedBy)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	item, err := s.svc.CreateItem(r.Context(), categoryID, core.FixedItem{
		Label:     sanitizeInput(req.Label),
		Amount:    core.Money(req.Amount),
		SplitMode: mode,
	}, createdBy)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(s.itemDTO(r.Context(), item)).Write(w)
}

// itemDTO adds my share of the item under the month's current income
// split, falling back to an even split when the month cannot be loaded.
func (s *Server) itemDTO(ctx context.Context, item core.FixedItem) fixedItemDTO {
	shareMe := 0.5
	if monthID, err := s.svc.ItemMonth(ctx, item.ID); err == nil {
		if ov, err := s.svc.Overview(ctx, monthID); err == nil {
			shareMe = ov.Computed.ShareMe
		}
	}
	return toFixedItemDTO(item, shareMe)
}

// toItemPatch validates a partial update. Split modes are parsed strictly.
func toItemPatch(req itemPatchRequest) (storage.ItemPatch, error) {
	var patch storage.ItemPatch
	if req.Label != nil {
		label := sanitizeInput(*req.Label)
		patch.Label = &label
	}
	if req.Amount != nil {
		amount := core.Money(*req.Amount)
		patch.Amount = &amount
	}
	if req.SplitMode != nil {
		mode, err := core.ParseSplitModeStrict(*req.SplitMode)
		if err != nil {
			return storage.ItemPatch{}, err
		}
		patch.SplitMode = &mode
	}
	if patch.Empty() {
		return storage.ItemPatch{}, badRequest("nothing to update")
	}
	return patch, nil
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req itemPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	patch, err := toItemPatch(req)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	item, err := s.svc.UpdateItem(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(s.itemDTO(r.Context(), item)).Write(w)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(s.svc.DeleteItem)(w, r)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	monthID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	// An omitted date means today.
	now := s.opts.Clock()
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if req.Date != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			s.writeError(w, r, log.OpCreate, err)
			return
		}
	}
	createdBy, err := s.creatorID(r.Context(), req.CreatedBy)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	expense, err := s.svc.CreateExpense(r.Context(), monthID, core.PrivateExpense{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money(req.Amount),
	}, createdBy)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toExpenseDTO(expense)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(s.svc.DeleteExpense)(w, r)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	monthID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	createdBy, err := s.creatorID(r.Context(), req.CreatedBy)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	transfer, err := s.svc.CreateTransfer(r.Context(), monthID, core.Transfer{
		Amount:      core.Money(req.Amount),
		Description: sanitizeInput(req.Description),
	}, createdBy)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	names := make(map[int64]string)
	if profiles, err := s.svc.Profiles(r.Context()); err == nil {
		for _, p := range profiles {
			names[p.ID] = p.Name
		}
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toTransferDTO(transfer, names)).Write(w)
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(s.svc.DeleteTransfer)(w, r)
}
