package handlers

import (
	"net/http"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
)

func (h *Handler) LotPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.svc.Lot.Pool(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pool)
}

type distributeRequest struct {
	Quotas []service.Quota `json:"quotas"`
}

// Distribute reports per-item failures in the body; a partial run is still a 200
func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.svc.Lot.Distribute(r.Context(), callerFrom(r.Context()), req.Quotas)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type assignRequest struct {
	ItemID   int64 `json:"item_id"`
	BidderID int64 `json:"bidder_id"`
}

func (h *Handler) LotAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Lot.Assign(r.Context(), callerFrom(r.Context()), req.ItemID, req.BidderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	var rows []service.BulkRow
	if err := decode(r, &rows); err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.svc.Lot.BulkAssign(r.Context(), callerFrom(r.Context()), rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
