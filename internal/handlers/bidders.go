package handlers

import (
	"net/http"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

func (h *Handler) ListBidders(w http.ResponseWriter, r *http.Request) {
	bidders, err := h.svc.Admin.ListBidders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bidders)
}

// GetBidder returns the bidder with its owned items, most expensive first
func (h *Handler) GetBidder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := h.svc.Admin.GetBidder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) CreateBidder(w http.ResponseWriter, r *http.Request) {
	var in models.BidderInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.svc.Admin.CreateBidder(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

// ImportBidders upserts each row by name
func (h *Handler) ImportBidders(w http.ResponseWriter, r *http.Request) {
	var in []models.BidderInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]models.Bidder, 0, len(in))
	for _, row := range in {
		b, err := h.svc.Admin.UpsertBidderByName(r.Context(), callerFrom(r.Context()), row)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, b)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateBidder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in models.BidderInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.svc.Admin.UpdateBidder(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *Handler) DeleteBidder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Admin.DeleteBidder(r.Context(), callerFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TierStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := h.svc.Auction.TierStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) TierRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Auction.Rules())
}
