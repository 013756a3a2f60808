package service_test

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/memstore"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/tier"
)

var (
	admin  = models.Caller{Name: "auctioneer", Role: models.RoleAdmin}
	viewer = models.Caller{Name: "screen", Role: models.RoleViewer}
	start  = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

type recorder struct {
	mu     sync.Mutex
	events []models.LedgerEvent
}

func (r *recorder) Publish(e models.LedgerEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds() []models.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

type harness struct {
	store   *memstore.Store
	clock   *clock.Manual
	pub     *recorder
	draws   *service.MemoryDrawStore
	auction *service.AuctionService
	bundle  *service.BundleService
	lot     *service.LotService
	admin   *service.AdminService
	catalog *service.CatalogService
}

func newHarness(t *testing.T, seed uint64) *harness {
	t.Helper()
	clk := clock.NewManual(start)
	store := memstore.New(clk)
	return newHarnessWithStore(t, store, clk, seed)
}

func newHarnessWithStore(t *testing.T, store service.Store, clk *clock.Manual, seed uint64) *harness {
	t.Helper()
	pub := &recorder{}
	draws := service.NewMemoryDrawStore(clk)
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	h := &harness{
		clock:   clk,
		pub:     pub,
		draws:   draws,
		auction: service.NewAuctionService(store, tier.DefaultRules(), pub, clk),
		bundle:  service.NewBundleService(store, draws, pub, clk, service.WithRand(rnd), service.WithDrawTTL(10*time.Minute)),
		lot:     service.NewLotService(store, rnd, pub, clk),
		admin:   service.NewAdminService(store, draws, pub, clk),
		catalog: service.NewCatalogService(store, pub, clk),
	}
	if ms, ok := store.(*memstore.Store); ok {
		h.store = ms
	}
	return h
}

func (h *harness) bidder(t *testing.T, name string, budget int64) models.Bidder {
	t.Helper()
	b, err := h.admin.CreateBidder(context.Background(), admin, models.BidderInput{Name: name, Budget: budget})
	assert.NoError(t, err)
	return b
}

func (h *harness) item(t *testing.T, name string, base int64) models.Item {
	t.Helper()
	it, err := h.catalog.CreateItem(context.Background(), admin, models.NewItem{Name: name, BasePrice: base})
	assert.NoError(t, err)
	return it
}

func (h *harness) poolItem(t *testing.T, name string) models.Item {
	t.Helper()
	it, err := h.catalog.CreateItem(context.Background(), admin, models.NewItem{Name: name, Pool: true})
	assert.NoError(t, err)
	return it
}

func (h *harness) getBidder(t *testing.T, id int64) models.Bidder {
	t.Helper()
	b, err := h.admin.GetBidder(context.Background(), id)
	assert.NoError(t, err)
	return b.Bidder
}

func (h *harness) totalSpend(t *testing.T) int64 {
	t.Helper()
	all, err := h.admin.ListBidders(context.Background())
	assert.NoError(t, err)
	var total int64
	for _, b := range all {
		total += b.Spend
	}
	return total
}

func (h *harness) band(t *testing.T, letter string) models.Band {
	t.Helper()
	bands, err := h.bundle.ListBands(context.Background())
	assert.NoError(t, err)
	for _, b := range bands {
		if b.Letter == letter {
			return b
		}
	}
	t.Fatalf("band %s not seeded", letter)
	return models.Band{}
}

func freshStore() *memstore.Store {
	return memstore.New(clock.NewManual(start))
}
