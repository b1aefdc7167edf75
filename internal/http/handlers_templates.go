package http

import (
	"net/http"

	"splitkasse/internal/core"
	"splitkasse/internal/log"
)

// Fixed-cost templates are copied into every newly created month.

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.svc.Templates(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	out := make([]templateCategoryDTO, 0, len(templates))
	for _, c := range templates {
		out = append(out, toTemplateCategoryDTO(c))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateTemplateCategory(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	category, err := s.svc.CreateTemplateCategory(r.Context(), sanitizeInput(req.Label))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toTemplateCategoryDTO(category)).Write(w)
}

func (s *Server) handleDeleteTemplateCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(s.svc.DeleteTemplateCategory)(w, r)
}

func (s *Server) handleCreateTemplateItem(w http.ResponseWriter, r *http.Request) {
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
	item, err := s.svc.CreateTemplateItem(r.Context(), categoryID, core.FixedItem{
		Label:     sanitizeInput(req.Label),
		Amount:    core.Money(req.Amount),
		SplitMode: mode,
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toTemplateItemDTO(item)).Write(w)
}

func (s *Server) handleUpdateTemplateItem(w http.ResponseWriter, r *http.Request) {
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
	item, err := s.svc.UpdateTemplateItem(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(toTemplateItemDTO(item)).Write(w)
}

func (s *Server) handleDeleteTemplateItem(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(s.svc.DeleteTemplateItem)(w, r)
}

func (s *Server) handleApplyTemplates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	if err := s.svc.ApplyTemplates(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	s.writeOverview(w, r, id)
}
