package service

import (
	"context"
	"strings"

	"github.com/google/logger"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// CatalogService manages the item catalog and its read queries
type CatalogService struct {
	store Store
	pub   Publisher
	clock clock.Clock
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store Store, pub Publisher, clk clock.Clock) *CatalogService {
	return &CatalogService{store: store, pub: pub, clock: clk}
}

// Direction selects the neighbour returned by Navigate
type Direction string

const (
	Next     Direction = "next"
	Previous Direction = "prev"
)

// ListItems returns items matching the filter ordered by id
func (s *CatalogService) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.store.ListItems(ctx, filter)
}

// GetItem returns a single item
func (s *CatalogService) GetItem(ctx context.Context, id int64) (models.Item, error) {
	return s.store.GetItem(ctx, id)
}

// Navigate returns the item after or before currentID in id order
func (s *CatalogService) Navigate(ctx context.Context, currentID int64, dir Direction) (models.Item, error) {
	if dir != Next && dir != Previous {
		return models.Item{}, models.Validationf("direction must be %q or %q", Next, Previous)
	}
	items, err := s.store.ListItems(ctx, models.ItemFilter{})
	if err != nil {
		return models.Item{}, err
	}
	var (
		found models.Item
		ok    bool
	)
	for _, it := range items {
		switch {
		case dir == Next && it.ID > currentID && (!ok || it.ID < found.ID):
			found, ok = it, true
		case dir == Previous && it.ID < currentID && (!ok || it.ID > found.ID):
			found, ok = it, true
		}
	}
	if !ok {
		return models.Item{}, models.ErrItemNotFound
	}
	return found, nil
}

func validateItem(in models.NewItem) (models.NewItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.ExternalRef = strings.TrimSpace(in.ExternalRef)
	if in.Name == "" {
		return in, models.Validationf("item name is required")
	}
	if in.BasePrice < 0 {
		return in, models.Validationf("base price must not be negative")
	}
	return in, nil
}

// CreateItem adds an item by hand. Pool items start Unsold.
func (s *CatalogService) CreateItem(ctx context.Context, caller models.Caller, in models.NewItem) (models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Item{}, err
	}
	in, err := validateItem(in)
	if err != nil {
		return models.Item{}, err
	}
	status := models.ItemStatusAvailable
	if in.Pool {
		status = models.ItemStatusUnsold
	}
	item, err := s.store.CreateItem(ctx, in, status)
	if err != nil {
		return models.Item{}, err
	}
	s.pub.Publish(newEvent(s.clock, models.EventItemUpdated, item))
	return item, nil
}

// UpdateItem edits an item's catalog fields. The allocation is untouched.
func (s *CatalogService) UpdateItem(ctx context.Context, caller models.Caller, id int64, in models.NewItem) (models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Item{}, err
	}
	in, err := validateItem(in)
	if err != nil {
		return models.Item{}, err
	}
	var result models.Item
	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.store.GetItemForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		item.Name, item.Email, item.ExternalRef = in.Name, in.Email, in.ExternalRef
		item.Category, item.BasePrice, item.Pool = in.Category, in.BasePrice, in.Pool
		result = item
		return s.store.UpdateItem(txCtx, item)
	})
	if err != nil {
		return models.Item{}, err
	}
	s.pub.Publish(newEvent(s.clock, models.EventItemUpdated, result))
	return result, nil
}

// DeleteItem reverses any sale on the owner before removing the item
func (s *CatalogService) DeleteItem(ctx context.Context, caller models.Caller, id int64) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	var removed models.Item
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.store.GetItemForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if item.IsSold() && item.BidderID != nil {
			if err := refundBidder(txCtx, s.store, *item.BidderID, item.SalePrice()); err != nil {
				return err
			}
		}
		removed = item
		return s.store.DeleteItem(txCtx, id)
	})
	if err != nil {
		return err
	}
	logger.Infof("[CATALOG] item %d removed", id)
	s.pub.Publish(newEvent(s.clock, models.EventItemRemoved, removed))
	return nil
}

// ReplaceCatalogItems swaps the imported catalog for a new one. Pool items
// added by hand are kept. Fails if any catalog item is sold.
func (s *CatalogService) ReplaceCatalogItems(ctx context.Context, caller models.Caller, items []models.NewItem) ([]models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	cleaned := make([]models.NewItem, 0, len(items))
	for i, in := range items {
		in, err := validateItem(in)
		if err != nil {
			return nil, models.Validationf("row %d: %v", i+1, err)
		}
		in.Pool = false
		cleaned = append(cleaned, in)
	}

	var created []models.Item
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		sold, err := s.store.ListItems(txCtx, models.ItemFilter{Status: models.ItemStatusSold})
		if err != nil {
			return err
		}
		for _, it := range sold {
			if !it.Pool {
				return models.Statef("catalog has sold items; clear the ledger first")
			}
		}
		if _, err := s.store.DeleteCatalogItems(txCtx); err != nil {
			return err
		}
		created = make([]models.Item, 0, len(cleaned))
		for _, in := range cleaned {
			item, err := s.store.CreateItem(txCtx, in, models.ItemStatusAvailable)
			if err != nil {
				return err
			}
			created = append(created, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("[CATALOG] imported %d items", len(created))
	s.pub.Publish(newEvent(s.clock, models.EventItemUpdated, models.Item{}))
	return created, nil
}
