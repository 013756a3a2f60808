package handlers

import (
	"net/http"
)

func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Admin.ClearAll(r.Context(), callerFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Recount(w http.ResponseWriter, r *http.Request) {
	bidders, err := h.svc.Admin.Recount(r.Context(), callerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bidders)
}

type resetBudgetsRequest struct {
	Amount int64 `json:"amount"`
}

// ResetBudgets sets every budget; an amount of 0 restores the default
func (h *Handler) ResetBudgets(w http.ResponseWriter, r *http.Request) {
	var req resetBudgetsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Admin.ResetBudgets(r.Context(), callerFrom(r.Context()), req.Amount); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
