package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
)

func TestAuctionService_Sell(t *testing.T) {
	ctx := context.Background()

	t.Run("budget is enforced against remaining points", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Falcons", 100000)
		first := h.item(t, "Asha", 1000)
		second := h.item(t, "Bilal", 1000)

		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: first.ID, BidderID: team.ID, Price: 85000})
		assert.NoError(t, err)

		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: second.ID, BidderID: team.ID, Price: 20000})
		check.Equal(t, models.KindBudget, models.KindOf(err))

		got := h.getBidder(t, team.ID)
		check.Equal(t, int64(85000), got.Spend)
		check.Equal(t, 1, got.ItemCount)

		item, _ := h.catalog.GetItem(ctx, second.ID)
		check.Equal(t, models.ItemStatusAvailable, item.Status)

		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: second.ID, BidderID: team.ID, Price: 15000})
		assert.NoError(t, err)
		check.Equal(t, int64(100000), h.getBidder(t, team.ID).Spend)
	})

	t.Run("tier cap restricts further bids to the low range", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Owls", 100000)
		for _, price := range []int64{160, 130, 110} {
			it := h.item(t, "p", 10)
			_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: price})
			assert.NoError(t, err)
		}

		fourth := h.item(t, "fourth", 10)
		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: fourth.ID, BidderID: team.ID, Price: 140})
		check.Equal(t, models.KindEligibility, models.KindOf(err))

		sold, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: fourth.ID, BidderID: team.ID, Price: 50})
		assert.NoError(t, err)
		check.Equal(t, models.MethodDirect, sold.Method)

		status, err := h.auction.TierStatus(ctx, team.ID)
		assert.NoError(t, err)
		check.True(t, status.Summary.CapReached)
	})

	t.Run("one direct purchase per band", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Lynx", 100000)
		a := h.item(t, "a", 10)
		b := h.item(t, "b", 10)
		sold, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: a.ID, BidderID: team.ID, Price: 175})
		assert.NoError(t, err)
		check.Equal(t, "A", sold.Tier)

		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: b.ID, BidderID: team.ID, Price: 199})
		check.Equal(t, models.KindEligibility, models.KindOf(err))
	})

	t.Run("preconditions", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Hawks", 1000)
		it := h.item(t, "Chen", 300)

		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 299})
		check.Equal(t, models.KindValidation, models.KindOf(err))

		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 0})
		check.Equal(t, models.KindValidation, models.KindOf(err))

		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: 404, BidderID: team.ID, Price: 500})
		check.Equal(t, models.KindNotFound, models.KindOf(err))

		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: 404, Price: 500})
		check.Equal(t, models.KindNotFound, models.KindOf(err))

		_, err = h.auction.Sell(ctx, viewer, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 500})
		check.Equal(t, models.KindForbidden, models.KindOf(err))

		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 500})
		assert.NoError(t, err)
		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 500})
		check.Equal(t, models.KindConflict, models.KindOf(err))

		check.Equal(t, []models.EventKind{models.EventBidderUpdated, models.EventItemUpdated, models.EventItemSold}, h.pub.kinds())
	})

	t.Run("concurrent sales never overspend", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Sharks", 10000)
		items := make([]models.Item, 20)
		for i := range items {
			items[i] = h.item(t, "x", 0)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for _, it := range items {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if _, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: id, BidderID: team.ID, Price: 1000}); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(it.ID)
		}
		wg.Wait()

		got := h.getBidder(t, team.ID)
		check.Equal(t, 10, succeeded)
		check.Equal(t, int64(10000), got.Spend)
		check.Equal(t, 10, got.ItemCount)
	})
}

func TestAuctionService_MarkUnsold(t *testing.T) {
	ctx := context.Background()

	t.Run("revert then resell restores the same state", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Falcons", 5000)
		it := h.item(t, "Asha", 100)

		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 1200})
		assert.NoError(t, err)
		soldState := h.getBidder(t, team.ID)

		reverted, err := h.auction.MarkUnsold(ctx, admin, it.ID)
		assert.NoError(t, err)
		check.Equal(t, models.ItemStatusUnsold, reverted.Status)
		check.True(t, reverted.BidderID == nil)
		check.True(t, reverted.Price == nil)
		check.Equal(t, models.MethodNone, reverted.Method)
		check.Equal(t, "", reverted.Tier)

		cleared := h.getBidder(t, team.ID)
		check.Equal(t, int64(0), cleared.Spend)
		check.Equal(t, 0, cleared.ItemCount)

		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 1200})
		assert.NoError(t, err)
		again := h.getBidder(t, team.ID)
		check.Equal(t, soldState.Spend, again.Spend)
		check.Equal(t, soldState.ItemCount, again.ItemCount)
	})

	t.Run("available item is passed over", func(t *testing.T) {
		h := newHarness(t, 1)
		it := h.item(t, "Dev", 100)
		got, err := h.auction.MarkUnsold(ctx, admin, it.ID)
		assert.NoError(t, err)
		check.Equal(t, models.ItemStatusUnsold, got.Status)
	})

	t.Run("unsold item is a no-op", func(t *testing.T) {
		h := newHarness(t, 1)
		it := h.item(t, "Dev", 100)
		_, err := h.auction.MarkUnsold(ctx, admin, it.ID)
		assert.NoError(t, err)
		before := len(h.pub.kinds())
		_, err = h.auction.MarkUnsold(ctx, admin, it.ID)
		assert.NoError(t, err)
		check.Equal(t, before, len(h.pub.kinds()))
	})

	t.Run("reversal clamps legacy spend at zero", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Legacy", 5000)
		it := h.item(t, "Old", 0)
		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 300})
		assert.NoError(t, err)

		b := h.getBidder(t, team.ID)
		b.Spend, b.ItemCount = 100, 0
		assert.NoError(t, h.store.UpdateBidder(ctx, b))

		_, err = h.auction.MarkUnsold(ctx, admin, it.ID)
		assert.NoError(t, err)
		got := h.getBidder(t, team.ID)
		check.Equal(t, int64(0), got.Spend)
		check.Equal(t, 0, got.ItemCount)
	})
}

func TestAuctionService_EditSale(t *testing.T) {
	ctx := context.Background()

	t.Run("moving to another bidder shifts spend and count", func(t *testing.T) {
		h := newHarness(t, 1)
		from := h.bidder(t, "From", 5000)
		to := h.bidder(t, "To", 5000)
		it := h.item(t, "Asha", 100)
		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: from.ID, Price: 1000})
		assert.NoError(t, err)
		before := h.totalSpend(t)

		edited, err := h.auction.EditSale(ctx, admin, service.EditInput{ItemID: it.ID, BidderID: to.ID, Price: 1500})
		assert.NoError(t, err)
		check.Equal(t, to.ID, *edited.BidderID)
		check.Equal(t, models.MethodDirect, edited.Method)

		check.Equal(t, int64(0), h.getBidder(t, from.ID).Spend)
		check.Equal(t, 0, h.getBidder(t, from.ID).ItemCount)
		check.Equal(t, int64(1500), h.getBidder(t, to.ID).Spend)
		check.Equal(t, 1, h.getBidder(t, to.ID).ItemCount)
		check.Equal(t, before+500, h.totalSpend(t))
	})

	t.Run("same bidder may use the old price as headroom", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Tight", 1000)
		it := h.item(t, "Asha", 0)
		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 800})
		assert.NoError(t, err)

		_, err = h.auction.EditSale(ctx, admin, service.EditInput{ItemID: it.ID, BidderID: team.ID, Price: 1000})
		assert.NoError(t, err)
		check.Equal(t, int64(1000), h.getBidder(t, team.ID).Spend)
		check.Equal(t, 1, h.getBidder(t, team.ID).ItemCount)

		_, err = h.auction.EditSale(ctx, admin, service.EditInput{ItemID: it.ID, BidderID: team.ID, Price: 1001})
		check.Equal(t, models.KindBudget, models.KindOf(err))
	})

	t.Run("editing within the same band is not self-blocking", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Band", 5000)
		it := h.item(t, "Asha", 0)
		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: team.ID, Price: 160})
		assert.NoError(t, err)

		edited, err := h.auction.EditSale(ctx, admin, service.EditInput{ItemID: it.ID, BidderID: team.ID, Price: 190})
		assert.NoError(t, err)
		check.Equal(t, int64(190), *edited.Price)
		check.Equal(t, int64(190), h.getBidder(t, team.ID).Spend)
	})

	t.Run("moving into a bidder's used band is rejected", func(t *testing.T) {
		h := newHarness(t, 1)
		from := h.bidder(t, "From", 5000)
		to := h.bidder(t, "To", 5000)
		held := h.item(t, "Held", 0)
		_, err := h.auction.Sell(ctx, admin, service.SellInput{ItemID: held.ID, BidderID: to.ID, Price: 160})
		assert.NoError(t, err)
		it := h.item(t, "Asha", 0)
		_, err = h.auction.Sell(ctx, admin, service.SellInput{ItemID: it.ID, BidderID: from.ID, Price: 170})
		assert.NoError(t, err)

		_, err = h.auction.EditSale(ctx, admin, service.EditInput{ItemID: it.ID, BidderID: to.ID, Price: 170})
		check.Equal(t, models.KindEligibility, models.KindOf(err))
		check.Equal(t, int64(170), h.getBidder(t, from.ID).Spend)
		check.Equal(t, int64(160), h.getBidder(t, to.ID).Spend)
	})

	t.Run("unsold item cannot be edited", func(t *testing.T) {
		h := newHarness(t, 1)
		team := h.bidder(t, "Any", 5000)
		it := h.item(t, "Asha", 0)
		_, err := h.auction.EditSale(ctx, admin, service.EditInput{ItemID: it.ID, BidderID: team.ID, Price: 10})
		check.Equal(t, models.KindState, models.KindOf(err))
	})
}
