package handlers

import (
	"net/http"
	"strconv"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
)

func itemFilter(r *http.Request) (models.ItemFilter, error) {
	q := r.URL.Query()
	f := models.ItemFilter{
		Status: models.ItemStatus(q.Get("status")),
		Method: models.Method(q.Get("method")),
		Search: q.Get("search"),
	}
	if v := q.Get("bidder_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, models.Validationf("invalid bidder_id")
		}
		f.BidderID = &id
	}
	if v := q.Get("pool"); v != "" {
		pool, err := strconv.ParseBool(v)
		if err != nil {
			return f, models.Validationf("invalid pool flag")
		}
		f.PoolOnly = pool
	}
	return f, nil
}

// ListItems supports the export contract: filter by bidder, status and method
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := itemFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.svc.Catalog.ListItems(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Catalog.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) NavigateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	dir := service.Direction(r.URL.Query().Get("dir"))
	if dir == "" {
		dir = service.Next
	}
	item, err := h.svc.Catalog.Navigate(r.Context(), id, dir)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in models.NewItem
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Catalog.CreateItem(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in models.NewItem
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Catalog.UpdateItem(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Catalog.DeleteItem(r.Context(), callerFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceCatalog is the import contract: every non-pool item is replaced
func (h *Handler) ReplaceCatalog(w http.ResponseWriter, r *http.Request) {
	var in []models.NewItem
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.svc.Catalog.ReplaceCatalogItems(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

type saleRequest struct {
	BidderID int64  `json:"bidder_id"`
	Price    int64  `json:"price"`
	Tier     string `json:"tier,omitempty"`
}

// Sell handles a Direct sale
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req saleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Auction.Sell(r.Context(), callerFrom(r.Context()), service.SellInput{
		ItemID: id, BidderID: req.BidderID, Price: req.Price, Tier: req.Tier,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handler) EditSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req saleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Auction.EditSale(r.Context(), callerFrom(r.Context()), service.EditInput{
		ItemID: id, BidderID: req.BidderID, Price: req.Price, Tier: req.Tier,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) MarkUnsold(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Auction.MarkUnsold(r.Context(), callerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) AddToPool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Lot.AddToPool(r.Context(), callerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}
