package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/handlers"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/memstore"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/tier"
)

const (
	adminToken  = "admin-secret"
	viewerToken = "viewer-secret"
)

type client struct {
	t      *testing.T
	router http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := memstore.New(clk)
	draws := service.NewMemoryDrawStore(clk)
	pub := service.NopPublisher()

	h := handlers.NewHandler(handlers.Services{
		Auction: service.NewAuctionService(store, tier.DefaultRules(), pub, clk),
		Bundle:  service.NewBundleService(store, draws, pub, clk),
		Lot:     service.NewLotService(store, service.DefaultRand(), pub, clk),
		Admin:   service.NewAdminService(store, draws, pub, clk),
		Catalog: service.NewCatalogService(store, pub, clk),
	}, handlers.NewStaticTokens(map[string]string{adminToken: "admin", viewerToken: "viewer"}))
	return &client{t: t, router: h.SetupRoutes()}
}

func (c *client) do(method, path, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestSellFlow(t *testing.T) {
	c := newClient(t)

	rec := c.do("POST", "/api/v1/bidders", adminToken, models.BidderInput{Name: "Falcons", Budget: 1000})
	check.Equal(t, http.StatusCreated, rec.Code)
	bidder := decodeInto[models.Bidder](t, rec)

	rec = c.do("POST", "/api/v1/items", adminToken, models.NewItem{Name: "Asha", BasePrice: 50})
	check.Equal(t, http.StatusCreated, rec.Code)
	item := decodeInto[models.Item](t, rec)

	path := fmt.Sprintf("/api/v1/items/%d/sell", item.ID)
	rec = c.do("POST", path, adminToken, map[string]any{"bidder_id": bidder.ID, "price": 160})
	check.Equal(t, http.StatusCreated, rec.Code)
	sold := decodeInto[models.Item](t, rec)
	check.Equal(t, models.ItemStatusSold, sold.Status)
	check.Equal(t, "A", sold.Tier)

	rec = c.do("POST", path, adminToken, map[string]any{"bidder_id": bidder.ID, "price": 160})
	check.Equal(t, http.StatusConflict, rec.Code)
	check.Equal(t, "conflict", decodeInto[errorBody](t, rec).Code)

	rec = c.do("GET", fmt.Sprintf("/api/v1/items?bidder_id=%d&status=sold", bidder.ID), "", nil)
	check.Equal(t, http.StatusOK, rec.Code)
	check.Equal(t, 1, len(decodeInto[[]models.Item](t, rec)))

	rec = c.do("GET", fmt.Sprintf("/api/v1/bidders/%d", bidder.ID), viewerToken, nil)
	check.Equal(t, http.StatusOK, rec.Code)
	detail := decodeInto[models.BidderDetail](t, rec)
	check.Equal(t, int64(160), detail.Spend)
	check.Equal(t, 1, len(detail.Items))

	rec = c.do("POST", fmt.Sprintf("/api/v1/items/%d/unsold", item.ID), adminToken, nil)
	check.Equal(t, http.StatusOK, rec.Code)
	check.Equal(t, models.ItemStatusUnsold, decodeInto[models.Item](t, rec).Status)
}

func TestErrorMapping(t *testing.T) {
	c := newClient(t)
	rec := c.do("POST", "/api/v1/bidders", adminToken, models.BidderInput{Name: "Kites", Budget: 100})
	bidder := decodeInto[models.Bidder](t, rec)
	rec = c.do("POST", "/api/v1/items", adminToken, models.NewItem{Name: "Bo"})
	item := decodeInto[models.Item](t, rec)
	sell := fmt.Sprintf("/api/v1/items/%d/sell", item.ID)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"over budget", "POST", sell, adminToken, map[string]any{"bidder_id": bidder.ID, "price": 150}, http.StatusConflict, "budget"},
		{"zero price", "POST", sell, adminToken, map[string]any{"bidder_id": bidder.ID, "price": 0}, http.StatusBadRequest, "validation"},
		{"unknown item", "GET", "/api/v1/items/999", "", nil, http.StatusNotFound, "not_found"},
		{"viewer cannot sell", "POST", sell, viewerToken, map[string]any{"bidder_id": bidder.ID, "price": 10}, http.StatusForbidden, "forbidden"},
		{"anonymous cannot clear", "POST", "/api/v1/admin/clear", "", nil, http.StatusForbidden, "forbidden"},
		{"bad token", "GET", "/api/v1/items", "nope", nil, http.StatusUnauthorized, "unauthorized"},
		{"unknown field", "POST", "/api/v1/bidders", adminToken, map[string]any{"nme": "x"}, http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(tt.method, tt.path, tt.token, tt.body)
			check.Equal(t, tt.status, rec.Code)
			check.Equal(t, tt.code, decodeInto[errorBody](t, rec).Code)
		})
	}
}

func TestBundleAndLotRoutes(t *testing.T) {
	c := newClient(t)
	var ids []int64
	for _, name := range []string{"One", "Two"} {
		rec := c.do("POST", "/api/v1/bidders", adminToken, models.BidderInput{Name: name, Budget: 1000})
		ids = append(ids, decodeInto[models.Bidder](t, rec).ID)
	}
	rec := c.do("POST", "/api/v1/items", adminToken, models.NewItem{Name: "Cy"})
	item := decodeInto[models.Item](t, rec)

	rec = c.do("GET", "/api/v1/bands", "", nil)
	bands := decodeInto[[]models.Band](t, rec)
	check.Equal(t, 3, len(bands))

	rec = c.do("POST", "/api/v1/draws", adminToken, map[string]any{
		"item_id": item.ID, "band_id": bands[2].ID, "bidder_ids": ids, "amount": 75,
	})
	check.Equal(t, http.StatusCreated, rec.Code)
	draw := decodeInto[models.Draw](t, rec)

	rec = c.do("POST", "/api/v1/draws/"+draw.ID+"/finalize", adminToken, nil)
	check.Equal(t, http.StatusOK, rec.Code)
	won := decodeInto[models.Item](t, rec)
	check.Equal(t, models.MethodBundle, won.Method)
	check.Equal(t, draw.WinnerID, *won.BidderID)

	rec = c.do("GET", "/api/v1/draws/"+draw.ID, "", nil)
	check.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do("POST", "/api/v1/items", adminToken, models.NewItem{Name: "Pooled", Pool: true})
	check.Equal(t, http.StatusCreated, rec.Code)
	rec = c.do("POST", "/api/v1/lot/distribute", adminToken, map[string]any{
		"quotas": []map[string]any{{"bidder_id": ids[0], "minimum": 1}},
	})
	check.Equal(t, http.StatusOK, rec.Code)
	result := decodeInto[service.LotResult](t, rec)
	check.Equal(t, 1, len(result.Assigned[ids[0]]))
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	rec := c.do("GET", "/health", "", nil)
	check.Equal(t, http.StatusOK, rec.Code)
	check.Equal(t, "healthy", decodeInto[map[string]string](t, rec)["status"])
}
