package http

import (
	"net/http"

	"splitkasse/internal/core"
	"splitkasse/internal/log"
)

func (s *Server) writeOverview(w http.ResponseWriter, r *http.Request, monthID int64) {
	ov, err := s.svc.Overview(r.Context(), monthID)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toOverviewDTO(ov)).Write(w)
}

// handleCurrentMonth returns today's month, creating it with carryover on
// first access.
func (s *Server) handleCurrentMonth(w http.ResponseWriter, r *http.Request) {
	ov, err := s.svc.CurrentOverview(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toOverviewDTO(ov)).Write(w)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	s.writeOverview(w, r, id)
}

func (s *Server) handleUpdateIncomes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req incomesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}

	incomes := make(map[core.PersonRole]core.Money, 2)
	if req.Me != nil {
		incomes[core.RoleMe] = core.Money(*req.Me)
	}
	if req.Partner != nil {
		incomes[core.RolePartner] = core.Money(*req.Partner)
	}
	if len(incomes) == 0 {
		s.writeError(w, r, log.OpUpdate, badRequest("at least one of me or partner is required"))
		return
	}

	if err := s.svc.UpdateIncomes(r.Context(), id, incomes); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.writeOverview(w, r, id)
}

func (s *Server) handleUpdateBalanceStart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req balanceStartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if req.PrivateBalanceStart == nil {
		s.writeError(w, r, log.OpUpdate, badRequest("privateBalanceStart is required"))
		return
	}

	if err := s.svc.UpdateBalanceStart(r.Context(), id, core.Money(*req.PrivateBalanceStart)); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.writeOverview(w, r, id)
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpClose, err)
		return
	}
	closed, computed, err := s.svc.CloseMonth(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpClose, err)
		return
	}
	NewJSONResponse().Body(closeResponse{Month: toMonthDTO(closed), Computed: computed}).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	full := queryBool(r, "full")
	history, err := s.svc.History(r.Context(), id, full)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(toHistoryDTO(history, full)).Write(w)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, s.opts.ClosedMonthsLimit, maxArchiveLimit)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	closed, err := s.svc.ClosedMonths(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	out := make([]closedMonthDTO, 0, len(closed))
	for _, c := range closed {
		out = append(out, toClosedMonthDTO(c))
	}
	NewJSONResponse().Body(out).Write(w)
}

// handleCalculate settles raw inputs without reading or writing storage.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	in, err := req.toInputs()
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(s.svc.Calculate(in)).Write(w)
}

func (s *Server) handleResetMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.ResetMonth(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	s.writeOverview(w, r, id)
}

func (s *Server) handleDeleteClosedMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.DeleteClosedMonth(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.svc.Profiles(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	out := make([]profileDTO, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfileDTO(p))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleRenameProfile(w http.ResponseWriter, r *http.Request) {
	role := core.PersonRole(r.PathValue("role"))
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.svc.RenameProfile(r.Context(), role, sanitizeInput(req.Name)); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.handleListProfiles(w, r)
}
