package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
)

func (h *Handler) ListBands(w http.ResponseWriter, r *http.Request) {
	bands, err := h.svc.Bundle.ListBands(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bands)
}

func (h *Handler) CreateBand(w http.ResponseWriter, r *http.Request) {
	var in models.BandInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	band, err := h.svc.Bundle.CreateBand(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, band)
}

func (h *Handler) UpdateBand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in models.BandInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	band, err := h.svc.Bundle.UpdateBand(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, band)
}

func (h *Handler) DeleteBand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Bundle.DeleteBand(r.Context(), callerFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Draw picks a winner among the selected bidders; the item is not allocated
// until the draw is finalized.
func (h *Handler) Draw(w http.ResponseWriter, r *http.Request) {
	var in service.DrawInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	draw, err := h.svc.Bundle.Draw(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, draw)
}

func (h *Handler) GetDraw(w http.ResponseWriter, r *http.Request) {
	draw, err := h.svc.Bundle.GetDraw(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, draw)
}

func (h *Handler) FinalizeDraw(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Bundle.Finalize(r.Context(), callerFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) DiscardDraw(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Bundle.Discard(r.Context(), callerFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BandStatus(w http.ResponseWriter, r *http.Request) {
	bidderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	bandID, err := pathID(r, "band")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := h.svc.Bundle.BandStatus(r.Context(), bidderID, bandID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) Participations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	parts, err := h.svc.Bundle.Participations(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, parts)
}
