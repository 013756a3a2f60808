package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/logger"
	"github.com/gorilla/mux"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
)

// Services groups the ledger operations exposed over HTTP
type Services struct {
	Auction *service.AuctionService
	Bundle  *service.BundleService
	Lot     *service.LotService
	Admin   *service.AdminService
	Catalog *service.CatalogService
}

// Handler contains HTTP request handlers
type Handler struct {
	svc  Services
	auth Authenticator
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, auth Authenticator) *Handler {
	return &Handler{svc: svc, auth: auth}
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware(h.auth))

	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/items", h.CreateItem).Methods("POST")
	api.HandleFunc("/items/{id:[0-9]+}", h.GetItem).Methods("GET")
	api.HandleFunc("/items/{id:[0-9]+}", h.UpdateItem).Methods("PUT")
	api.HandleFunc("/items/{id:[0-9]+}", h.DeleteItem).Methods("DELETE")
	api.HandleFunc("/items/{id:[0-9]+}/navigate", h.NavigateItem).Methods("GET")
	api.HandleFunc("/items/{id:[0-9]+}/sell", h.Sell).Methods("POST")
	api.HandleFunc("/items/{id:[0-9]+}/sale", h.EditSale).Methods("PUT")
	api.HandleFunc("/items/{id:[0-9]+}/unsold", h.MarkUnsold).Methods("POST")
	api.HandleFunc("/items/{id:[0-9]+}/pool", h.AddToPool).Methods("POST")
	api.HandleFunc("/catalog", h.ReplaceCatalog).Methods("PUT")

	api.HandleFunc("/bidders", h.ListBidders).Methods("GET")
	api.HandleFunc("/bidders", h.CreateBidder).Methods("POST")
	api.HandleFunc("/bidders/import", h.ImportBidders).Methods("POST")
	api.HandleFunc("/bidders/{id:[0-9]+}", h.GetBidder).Methods("GET")
	api.HandleFunc("/bidders/{id:[0-9]+}", h.UpdateBidder).Methods("PUT")
	api.HandleFunc("/bidders/{id:[0-9]+}", h.DeleteBidder).Methods("DELETE")
	api.HandleFunc("/bidders/{id:[0-9]+}/tier", h.TierStatus).Methods("GET")
	api.HandleFunc("/bidders/{id:[0-9]+}/participations", h.Participations).Methods("GET")
	api.HandleFunc("/bidders/{id:[0-9]+}/bands/{band:[0-9]+}", h.BandStatus).Methods("GET")

	api.HandleFunc("/bands", h.ListBands).Methods("GET")
	api.HandleFunc("/bands", h.CreateBand).Methods("POST")
	api.HandleFunc("/bands/{id:[0-9]+}", h.UpdateBand).Methods("PUT")
	api.HandleFunc("/bands/{id:[0-9]+}", h.DeleteBand).Methods("DELETE")

	api.HandleFunc("/draws", h.Draw).Methods("POST")
	api.HandleFunc("/draws/{id}", h.GetDraw).Methods("GET")
	api.HandleFunc("/draws/{id}/finalize", h.FinalizeDraw).Methods("POST")
	api.HandleFunc("/draws/{id}", h.DiscardDraw).Methods("DELETE")

	api.HandleFunc("/lot/pool", h.LotPool).Methods("GET")
	api.HandleFunc("/lot/distribute", h.Distribute).Methods("POST")
	api.HandleFunc("/lot/assign", h.LotAssign).Methods("POST")
	api.HandleFunc("/lot/bulk", h.BulkAssign).Methods("POST")

	api.HandleFunc("/tier/rules", h.TierRules).Methods("GET")

	api.HandleFunc("/admin/clear", h.ClearAll).Methods("POST")
	api.HandleFunc("/admin/recount", h.Recount).Methods("POST")
	api.HandleFunc("/admin/reset-budgets", h.ResetBudgets).Methods("POST")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)
	return router
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "api-gateway",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, models.Validationf("invalid %s", name)
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.Validationf("invalid request body: %v", err)
	}
	return nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, errorBody{Error: message, Code: code})
}

func statusFor(kind models.Kind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindEligibility:
		return http.StatusUnprocessableEntity
	case models.KindBudget, models.KindConflict, models.KindState:
		return http.StatusConflict
	case models.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps business rejections to their status; anything else is a 500
// whose detail stays in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var me *models.Error
	if errors.As(err, &me) {
		respondError(w, statusFor(me.Kind), string(me.Kind), me.Message)
		return
	}
	logger.Errorf("[HTTP] %s %s: %v", r.Method, r.URL.Path, err)
	respondError(w, http.StatusInternalServerError, string(models.KindInternal), "internal error")
}

// loggingMiddleware logs all HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Infof("[HTTP] %s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
