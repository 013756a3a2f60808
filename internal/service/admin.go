package service

import (
	"context"
	"slices"
	"strings"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// AdminService holds ledger-wide maintenance and bidder management
type AdminService struct {
	store Store
	draws DrawStore
	pub   Publisher
	clock clock.Clock
}

// NewAdminService creates a new admin service
func NewAdminService(store Store, draws DrawStore, pub Publisher, clk clock.Clock) *AdminService {
	return &AdminService{store: store, draws: draws, pub: pub, clock: clk}
}

// ClearAll returns every item to Unsold, zeroes all spend and counts,
// wipes the bundle ledger and drops pending draws.
func (s *AdminService) ClearAll(ctx context.Context, caller models.Caller) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.store.WithTx(ctx, s.store.ResetLedger); err != nil {
		return err
	}
	if err := s.draws.Clear(ctx); err != nil {
		logger.Warningf("[ADMIN] failed to clear pending draws: %v", err)
	}
	logger.Infof("[ADMIN] ledger cleared by %s", caller.Name)
	s.emit(models.EventLedgerCleared, 0)
	return nil
}

// Recount sets every bidder's item count from the items it actually owns
func (s *AdminService) Recount(ctx context.Context, caller models.Caller) ([]models.Bidder, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	bidders, err := s.store.ListBidders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Bidder, 0, len(bidders))
	for _, b := range bidders {
		var updated models.Bidder
		err := s.store.WithTx(ctx, func(txCtx context.Context) error {
			bidder, err := s.store.GetBidderForUpdate(txCtx, b.ID)
			if err != nil {
				return err
			}
			owned, err := s.store.ListItems(txCtx, models.ItemFilter{BidderID: &bidder.ID, Status: models.ItemStatusSold})
			if err != nil {
				return err
			}
			bidder.ItemCount = len(owned)
			updated = bidder
			return s.store.UpdateBidder(txCtx, bidder)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, updated)
	}
	logger.Infof("[ADMIN] recounted %d bidders", len(out))
	s.emit(models.EventBidderUpdated, 0)
	return out, nil
}

// ResetBudgets sets every bidder's budget. No bidder may end up over budget.
func (s *AdminService) ResetBudgets(ctx context.Context, caller models.Caller, amount int64) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if amount <= 0 {
		amount = models.DefaultBudget
	}
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		all, err := s.store.ListBidders(txCtx)
		if err != nil {
			return err
		}
		ids := make([]int64, len(all))
		for i, b := range all {
			ids[i] = b.ID
		}
		locked, err := lockBidders(txCtx, s.store, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			b, ok := locked[id]
			if !ok {
				continue
			}
			if b.Spend > amount {
				return models.Budgetf("%s has already spent %d", b.Name, b.Spend)
			}
			b.Budget = amount
			if err := s.store.UpdateBidder(txCtx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(models.EventBidderUpdated, 0)
	return nil
}

// ListBidders returns all bidders ordered by name
func (s *AdminService) ListBidders(ctx context.Context) ([]models.Bidder, error) {
	return s.store.ListBidders(ctx)
}

// GetBidder returns a bidder with its items, highest price first
func (s *AdminService) GetBidder(ctx context.Context, id int64) (models.BidderDetail, error) {
	b, err := s.store.GetBidder(ctx, id)
	if err != nil {
		return models.BidderDetail{}, err
	}
	items, err := s.store.ListItems(ctx, models.ItemFilter{BidderID: &id, Status: models.ItemStatusSold})
	if err != nil {
		return models.BidderDetail{}, err
	}
	slices.SortStableFunc(items, func(a, b models.Item) int {
		switch {
		case a.SalePrice() > b.SalePrice():
			return -1
		case a.SalePrice() < b.SalePrice():
			return 1
		}
		return 0
	})
	return models.BidderDetail{Bidder: b, Items: items}, nil
}

func validateBidder(in models.BidderInput) (models.BidderInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, models.Validationf("bidder name is required")
	}
	if in.Budget < 0 {
		return in, models.Validationf("budget must not be negative")
	}
	if in.MinQuota < 0 {
		return in, models.Validationf("minimum quota must not be negative")
	}
	return in, nil
}

// CreateBidder adds a team. The name must be unique.
func (s *AdminService) CreateBidder(ctx context.Context, caller models.Caller, in models.BidderInput) (models.Bidder, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Bidder{}, err
	}
	in, err := validateBidder(in)
	if err != nil {
		return models.Bidder{}, err
	}
	if in.Budget == 0 {
		in.Budget = models.DefaultBudget
	}
	b, err := s.store.CreateBidder(ctx, in)
	if err != nil {
		return models.Bidder{}, err
	}
	s.emit(models.EventBidderUpdated, b.ID)
	return b, nil
}

// UpdateBidder edits a team. A zero budget keeps the current one, and the
// budget cannot be lowered below what is already spent. Legacy teams that
// are already over budget can still be edited.
func (s *AdminService) UpdateBidder(ctx context.Context, caller models.Caller, id int64, in models.BidderInput) (models.Bidder, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Bidder{}, err
	}
	in, err := validateBidder(in)
	if err != nil {
		return models.Bidder{}, err
	}
	var result models.Bidder
	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.store.GetBidderForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if in.Budget == 0 {
			in.Budget = b.Budget
		}
		if in.Budget < b.Spend && in.Budget < b.Budget {
			return models.Budgetf("budget %d is below amount already spent %d", in.Budget, b.Spend)
		}
		b.Name, b.Budget, b.MinQuota = in.Name, in.Budget, in.MinQuota
		b.Captain, b.ViceCaptain = in.Captain, in.ViceCaptain
		result = b
		return s.store.UpdateBidder(txCtx, b)
	})
	if err != nil {
		return models.Bidder{}, err
	}
	s.emit(models.EventBidderUpdated, id)
	return result, nil
}

// UpsertBidderByName creates or updates a team matched by name. Used by catalog import.
func (s *AdminService) UpsertBidderByName(ctx context.Context, caller models.Caller, in models.BidderInput) (models.Bidder, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Bidder{}, err
	}
	existing, err := s.store.FindBidderByName(ctx, strings.TrimSpace(in.Name))
	switch {
	case err == nil:
		return s.UpdateBidder(ctx, caller, existing.ID, in)
	case models.KindOf(err) == models.KindNotFound:
		return s.CreateBidder(ctx, caller, in)
	default:
		return models.Bidder{}, err
	}
}

// DeleteBidder releases every item the bidder owns, then removes it
func (s *AdminService) DeleteBidder(ctx context.Context, caller models.Caller, id int64) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	released := 0
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		owned, err := s.store.ListItems(txCtx, models.ItemFilter{BidderID: &id})
		if err != nil {
			return err
		}
		for _, it := range owned {
			item, err := s.store.GetItemForUpdate(txCtx, it.ID)
			if err != nil {
				return err
			}
			if !item.OwnedBy(id) {
				continue
			}
			item.Release()
			if err := s.store.UpdateItem(txCtx, item); err != nil {
				return err
			}
			released++
		}
		if _, err := s.store.GetBidderForUpdate(txCtx, id); err != nil {
			return err
		}
		return s.store.DeleteBidder(txCtx, id)
	})
	if err != nil {
		return err
	}
	logger.Infof("[ADMIN] bidder %d deleted, %d items released", id, released)
	s.emit(models.EventBidderUpdated, id)
	return nil
}

func (s *AdminService) emit(kind models.EventKind, bidderID int64) {
	s.pub.Publish(models.LedgerEvent{
		EventID:   uuid.New().String(),
		Kind:      kind,
		BidderID:  bidderID,
		Timestamp: s.clock.Now(),
	})
}
