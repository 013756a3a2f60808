package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/database"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/testutil"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/tier"
)

var admin = models.Caller{Name: "auctioneer", Role: models.RoleAdmin}

func newStore(t *testing.T) *database.Store {
	t.Helper()
	ctx := context.Background()
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)
	return database.NewStore(pool)
}

func TestStore_Bidders(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	b, err := store.CreateBidder(ctx, models.BidderInput{Name: "Falcons", Budget: 5000})
	assert.NoError(t, err)
	check.Equal(t, int64(5000), b.Budget)

	_, err = store.CreateBidder(ctx, models.BidderInput{Name: "falcons", Budget: 5000})
	check.True(t, errors.Is(err, models.ErrBidderExists))

	found, err := store.FindBidderByName(ctx, "FALCONS")
	assert.NoError(t, err)
	check.Equal(t, b.ID, found.ID)

	_, err = store.GetBidder(ctx, b.ID+100)
	check.True(t, errors.Is(err, models.ErrBidderNotFound))
}

func TestStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := store.CreateBidder(ctx, models.BidderInput{Name: "Ghost", Budget: 10}); err != nil {
			return err
		}
		return boom
	})
	check.True(t, errors.Is(err, boom))

	all, err := store.ListBidders(ctx)
	assert.NoError(t, err)
	check.Equal(t, 0, len(all))
}

func TestStore_ItemsAndFilters(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	a, err := store.CreateItem(ctx, models.NewItem{Name: "Asha", Email: "asha@example.com"}, models.ItemStatusAvailable)
	assert.NoError(t, err)
	_, err = store.CreateItem(ctx, models.NewItem{Name: "Bo", Pool: true}, models.ItemStatusUnsold)
	assert.NoError(t, err)

	got, err := store.ListItems(ctx, models.ItemFilter{Search: "ASHA"})
	assert.NoError(t, err)
	check.Equal(t, 1, len(got))
	check.Equal(t, a.ID, got[0].ID)

	pool, err := store.ListItems(ctx, models.ItemFilter{PoolOnly: true})
	assert.NoError(t, err)
	check.Equal(t, 1, len(pool))

	n, err := store.DeleteCatalogItems(ctx)
	assert.NoError(t, err)
	check.Equal(t, 1, n)
}

func TestStore_LedgerFlows(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := clock.NewSystem()
	draws := service.NewMemoryDrawStore(clk)
	pub := service.NopPublisher()

	auction := service.NewAuctionService(store, tier.DefaultRules(), pub, clk)
	admins := service.NewAdminService(store, draws, pub, clk)
	catalog := service.NewCatalogService(store, pub, clk)

	t.Run("concurrent sales never overspend", func(t *testing.T) {
		bidder, err := admins.CreateBidder(ctx, admin, models.BidderInput{Name: "Racers", Budget: 300})
		assert.NoError(t, err)

		var ids []int64
		for i := 0; i < 10; i++ {
			it, err := catalog.CreateItem(ctx, admin, models.NewItem{Name: "racer"})
			assert.NoError(t, err)
			ids = append(ids, it.ID)
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, _ = auction.Sell(ctx, admin, service.SellInput{ItemID: id, BidderID: bidder.ID, Price: 50})
			}(id)
		}
		wg.Wait()

		got, err := store.GetBidder(ctx, bidder.ID)
		assert.NoError(t, err)
		check.True(t, got.Spend <= got.Budget)
		sold, err := store.ListItems(ctx, models.ItemFilter{BidderID: &bidder.ID})
		assert.NoError(t, err)
		check.Equal(t, len(sold), got.ItemCount)
	})

	t.Run("clear all resets the ledger", func(t *testing.T) {
		assert.NoError(t, admins.ClearAll(ctx, admin))
		items, err := store.ListItems(ctx, models.ItemFilter{Status: models.ItemStatusSold})
		assert.NoError(t, err)
		check.Equal(t, 0, len(items))
		bidders, err := store.ListBidders(ctx)
		assert.NoError(t, err)
		for _, b := range bidders {
			check.Equal(t, int64(0), b.Spend)
		}
	})
}
