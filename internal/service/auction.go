package service

import (
	"context"
	"errors"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/tier"
)

// AuctionService runs direct sales and their corrections
type AuctionService struct {
	store Store
	rules tier.Rules
	pub   Publisher
	clock clock.Clock
}

// NewAuctionService creates a new direct sale service
func NewAuctionService(store Store, rules tier.Rules, pub Publisher, clk clock.Clock) *AuctionService {
	return &AuctionService{store: store, rules: rules, pub: pub, clock: clk}
}

// SellInput is a direct sale request. Tier is optional.
type SellInput struct {
	ItemID   int64  `json:"item_id"`
	BidderID int64  `json:"bidder_id"`
	Price    int64  `json:"price"`
	Tier     string `json:"tier,omitempty"`
}

// Sell allocates an item to a bidder at the hammer price
func (s *AuctionService) Sell(ctx context.Context, caller models.Caller, in SellInput) (models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Item{}, err
	}
	if in.Price <= 0 {
		return models.Item{}, models.Validationf("price must be positive")
	}

	var result models.Item
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.store.GetItemForUpdate(txCtx, in.ItemID)
		if err != nil {
			return err
		}
		if item.IsSold() {
			return models.ErrItemSold
		}
		bidder, err := s.store.GetBidderForUpdate(txCtx, in.BidderID)
		if err != nil {
			return err
		}
		if in.Price < item.BasePrice {
			return models.Validationf("price %d is below base price %d", in.Price, item.BasePrice)
		}
		if in.Price > bidder.Remaining() {
			return models.Budgetf("price %d exceeds remaining budget %d of %s", in.Price, bidder.Remaining(), bidder.Name)
		}
		if err := s.checkTier(txCtx, bidder.ID, 0, in.Price); err != nil {
			return err
		}

		label := in.Tier
		if label == "" {
			label = s.rules.LabelFor(in.Price)
		}
		item.Allocate(bidder.ID, in.Price, models.MethodDirect, label)
		bidder.Charge(in.Price)
		if err := s.store.UpdateItem(txCtx, item); err != nil {
			return err
		}
		if err := s.store.UpdateBidder(txCtx, bidder); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}

	logger.Infof("[SALE] item %d sold to bidder %d for %d", result.ID, in.BidderID, in.Price)
	s.pub.Publish(newEvent(s.clock, models.EventItemSold, result))
	return result, nil
}

// EditInput corrects a recorded sale. Tier is optional.
type EditInput struct {
	ItemID   int64  `json:"item_id"`
	BidderID int64  `json:"bidder_id"`
	Price    int64  `json:"price"`
	Tier     string `json:"tier,omitempty"`
}

// EditSale moves a sold item to another bidder or changes its price. Budget
// and tier checks are evaluated as if the old allocation were already undone.
func (s *AuctionService) EditSale(ctx context.Context, caller models.Caller, in EditInput) (models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Item{}, err
	}
	if in.Price < 0 {
		return models.Item{}, models.Validationf("price must not be negative")
	}

	var (
		result   models.Item
		previous int64
	)
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.store.GetItemForUpdate(txCtx, in.ItemID)
		if err != nil {
			return err
		}
		if !item.IsSold() || item.BidderID == nil {
			return models.ErrItemNotSold
		}
		oldBidderID, oldPrice := *item.BidderID, item.SalePrice()
		previous = oldBidderID

		if item.Method != models.MethodLot {
			if in.Price <= 0 {
				return models.Validationf("price must be positive")
			}
			if in.Price < item.BasePrice {
				return models.Validationf("price %d is below base price %d", in.Price, item.BasePrice)
			}
		}

		bidders, err := lockBidders(txCtx, s.store, []int64{oldBidderID, in.BidderID})
		if err != nil {
			return err
		}
		newBidder, ok := bidders[in.BidderID]
		if !ok {
			return models.ErrBidderNotFound
		}
		oldBidder, hadOld := bidders[oldBidderID]

		available := newBidder.Remaining()
		if in.BidderID == oldBidderID {
			available += oldPrice
		}
		if in.Price > available {
			return models.Budgetf("price %d exceeds remaining budget %d of %s", in.Price, available, newBidder.Name)
		}
		if item.Method == models.MethodDirect || item.Method == models.MethodNone {
			if err := s.checkTier(txCtx, newBidder.ID, item.ID, in.Price); err != nil {
				return err
			}
		}

		label := in.Tier
		if label == "" {
			label = item.Tier
			if item.Method == models.MethodDirect {
				label = s.rules.LabelFor(in.Price)
			}
		}

		if in.BidderID == oldBidderID {
			newBidder.Spend += in.Price - oldPrice
			if newBidder.Spend < 0 {
				newBidder.Spend = 0
			}
		} else {
			if hadOld {
				oldBidder.Refund(oldPrice)
				if err := s.store.UpdateBidder(txCtx, oldBidder); err != nil {
					return err
				}
			}
			newBidder.Charge(in.Price)
		}
		if err := s.store.UpdateBidder(txCtx, newBidder); err != nil {
			return err
		}

		item.Allocate(newBidder.ID, in.Price, item.Method, label)
		if err := s.store.UpdateItem(txCtx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}

	logger.Infof("[SALE] item %d edited: bidder %d -> %d, price %d", result.ID, previous, in.BidderID, in.Price)
	event := newEvent(s.clock, models.EventItemUpdated, result)
	event.PreviousBidderID = previous
	s.pub.Publish(event)
	return result, nil
}

// MarkUnsold reverts a sale, or passes over an available item. Reverting an
// already unsold item is a no-op.
func (s *AuctionService) MarkUnsold(ctx context.Context, caller models.Caller, itemID int64) (models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Item{}, err
	}

	var (
		result   models.Item
		changed  bool
		previous int64
	)
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.store.GetItemForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}
		switch item.Status {
		case models.ItemStatusUnsold:
			result = item
			return nil
		case models.ItemStatusSold:
			if item.BidderID != nil {
				previous = *item.BidderID
				if err := refundBidder(txCtx, s.store, previous, item.SalePrice()); err != nil {
					return err
				}
			}
		}
		item.Release()
		if err := s.store.UpdateItem(txCtx, item); err != nil {
			return err
		}
		result, changed = item, true
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}

	if changed {
		logger.Infof("[SALE] item %d marked unsold", result.ID)
		event := newEvent(s.clock, models.EventItemUnsold, result)
		event.PreviousBidderID = previous
		s.pub.Publish(event)
	}
	return result, nil
}

// TierStatus reports the bands still open to a bidder for direct sales
func (s *AuctionService) TierStatus(ctx context.Context, bidderID int64) (tier.Status, error) {
	if _, err := s.store.GetBidder(ctx, bidderID); err != nil {
		return tier.Status{}, err
	}
	items, err := s.store.ListItems(ctx, models.ItemFilter{BidderID: &bidderID, Status: models.ItemStatusSold})
	if err != nil {
		return tier.Status{}, err
	}
	return tier.StatusFor(s.rules, bidderID, items), nil
}

// Rules returns the tier rules in force
func (s *AuctionService) Rules() tier.Rules {
	return s.rules
}

func (s *AuctionService) checkTier(ctx context.Context, bidderID, excludeItemID, price int64) error {
	items, err := s.store.ListItems(ctx, models.ItemFilter{BidderID: &bidderID, Status: models.ItemStatusSold})
	if err != nil {
		return err
	}
	summary := tier.Summarize(s.rules, items, excludeItemID)
	return tier.AllowedBid(s.rules, summary, price).Err(s.rules)
}

// refundBidder reverses a sale on its owner. An owner that no longer exists is ignored.
func refundBidder(ctx context.Context, store Store, bidderID, price int64) error {
	bidder, err := store.GetBidderForUpdate(ctx, bidderID)
	if err != nil {
		if errors.Is(err, models.ErrBidderNotFound) {
			return nil
		}
		return err
	}
	bidder.Refund(price)
	return store.UpdateBidder(ctx, bidder)
}

func newEvent(clk clock.Clock, kind models.EventKind, item models.Item) models.LedgerEvent {
	event := models.LedgerEvent{
		EventID:   uuid.New().String(),
		Kind:      kind,
		ItemID:    item.ID,
		Price:     item.SalePrice(),
		Method:    item.Method,
		Tier:      item.Tier,
		Timestamp: clk.Now(),
	}
	if item.BidderID != nil {
		event.BidderID = *item.BidderID
	}
	return event
}
