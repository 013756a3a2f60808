package service

import (
	"context"
	"strings"

	"github.com/google/logger"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// LotService distributes the pool of leftover items across bidders at zero cost
type LotService struct {
	store Store
	rand  Rand
	pub   Publisher
	clock clock.Clock
}

// NewLotService creates a new lot distribution service
func NewLotService(store Store, rnd Rand, pub Publisher, clk clock.Clock) *LotService {
	if rnd == nil {
		rnd = DefaultRand()
	}
	return &LotService{store: store, rand: rnd, pub: pub, clock: clk}
}

// Quota asks for at least Minimum items for a bidder
type Quota struct {
	BidderID int64 `json:"bidder_id"`
	Minimum  int   `json:"minimum"`
}

// LotFailure is an item that could not be committed
type LotFailure struct {
	ItemID   int64  `json:"item_id"`
	BidderID int64  `json:"bidder_id"`
	Error    string `json:"error"`
}

// LotResult lists the committed assignments per bidder and any failures
type LotResult struct {
	Assigned map[int64][]int64 `json:"assigned"`
	Failures []LotFailure      `json:"failures"`
}

// Pool lists items eligible for lot allocation: pool-flagged items and unsold items
func (s *LotService) Pool(ctx context.Context) ([]models.Item, error) {
	return s.store.ListItems(ctx, models.ItemFilter{PoolOnly: true})
}

// AddToPool flags an unsold or available item for lot allocation
func (s *LotService) AddToPool(ctx context.Context, caller models.Caller, itemID int64) (models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Item{}, err
	}
	var result models.Item
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.store.GetItemForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}
		if item.IsSold() {
			return models.Statef("sold items cannot be added to the lot")
		}
		if item.Pool {
			return models.Statef("item is already in the lot")
		}
		item.Pool = true
		result = item
		return s.store.UpdateItem(txCtx, item)
	})
	if err != nil {
		return models.Item{}, err
	}
	s.pub.Publish(newEvent(s.clock, models.EventItemUpdated, result))
	return result, nil
}

// Distribute shuffles the pool, hands every bidder its minimum, then deals
// the rest round-robin in shuffled bidder order. Each item commits on its
// own, so one failure does not stop the others.
func (s *LotService) Distribute(ctx context.Context, caller models.Caller, quotas []Quota) (LotResult, error) {
	if err := requireAdmin(caller); err != nil {
		return LotResult{}, err
	}
	if len(quotas) == 0 {
		return LotResult{}, models.Validationf("at least one bidder is required")
	}
	seen := make(map[int64]bool, len(quotas))
	requested := 0
	for _, q := range quotas {
		if q.Minimum < 0 {
			return LotResult{}, models.Validationf("minimum for bidder %d must not be negative", q.BidderID)
		}
		if seen[q.BidderID] {
			return LotResult{}, models.Validationf("bidder %d listed twice", q.BidderID)
		}
		seen[q.BidderID] = true
		requested += q.Minimum
		if _, err := s.store.GetBidder(ctx, q.BidderID); err != nil {
			return LotResult{}, err
		}
	}

	listed, err := s.Pool(ctx)
	if err != nil {
		return LotResult{}, err
	}
	pool := make([]int64, 0, len(listed))
	for _, it := range listed {
		// pool-flagged items that are already sold stay with their owner
		if !it.IsSold() {
			pool = append(pool, it.ID)
		}
	}
	if requested > len(pool) {
		return LotResult{}, models.Validationf("requested minimums %d exceed pool size %d", requested, len(pool))
	}

	plan := s.plan(pool, quotas)

	result := LotResult{Assigned: make(map[int64][]int64, len(quotas))}
	for _, q := range quotas {
		result.Assigned[q.BidderID] = []int64{}
	}
	for _, a := range plan {
		item, err := s.commit(ctx, a.itemID, a.bidderID)
		if err != nil {
			logger.Warningf("[LOT] item %d to bidder %d failed: %v", a.itemID, a.bidderID, err)
			result.Failures = append(result.Failures, LotFailure{ItemID: a.itemID, BidderID: a.bidderID, Error: err.Error()})
			continue
		}
		result.Assigned[a.bidderID] = append(result.Assigned[a.bidderID], item.ID)
		s.pub.Publish(newEvent(s.clock, models.EventItemSold, item))
	}
	logger.Infof("[LOT] distributed %d items across %d bidders, %d failures",
		len(plan)-len(result.Failures), len(quotas), len(result.Failures))
	return result, nil
}

type assignment struct {
	itemID   int64
	bidderID int64
}

func (s *LotService) plan(pool []int64, quotas []Quota) []assignment {
	s.rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	plan := make([]assignment, 0, len(pool))
	for _, q := range quotas {
		for n := 0; n < q.Minimum && len(pool) > 0; n++ {
			plan = append(plan, assignment{itemID: pool[0], bidderID: q.BidderID})
			pool = pool[1:]
		}
	}

	order := make([]int64, len(quotas))
	for i, q := range quotas {
		order[i] = q.BidderID
	}
	s.rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for i := 0; len(pool) > 0; i++ {
		plan = append(plan, assignment{itemID: pool[0], bidderID: order[i%len(order)]})
		pool = pool[1:]
	}
	return plan
}

// Assign gives one item to a bidder as a zero-price lot allocation
func (s *LotService) Assign(ctx context.Context, caller models.Caller, itemID, bidderID int64) (models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Item{}, err
	}
	item, err := s.commit(ctx, itemID, bidderID)
	if err != nil {
		return models.Item{}, err
	}
	s.pub.Publish(newEvent(s.clock, models.EventItemSold, item))
	return item, nil
}

// commit runs the zero-price allocation. No base price, tier or budget checks apply.
func (s *LotService) commit(ctx context.Context, itemID, bidderID int64) (models.Item, error) {
	var result models.Item
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.store.GetItemForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}
		if item.IsSold() {
			return models.ErrItemSold
		}
		bidder, err := s.store.GetBidderForUpdate(txCtx, bidderID)
		if err != nil {
			return err
		}
		item.Allocate(bidder.ID, 0, models.MethodLot, "")
		bidder.Charge(0)
		if err := s.store.UpdateItem(txCtx, item); err != nil {
			return err
		}
		if err := s.store.UpdateBidder(txCtx, bidder); err != nil {
			return err
		}
		result = item
		return nil
	})
	return result, err
}

// BulkRow matches an item by employee code or email to a bidder by name
type BulkRow struct {
	ItemRef    string `json:"item_ref"`
	BidderName string `json:"bidder_name"`
}

// BulkRowResult reports the outcome of one bulk row
type BulkRowResult struct {
	Row    int    `json:"row"`
	ItemID int64  `json:"item_id,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// BulkAssign applies lot assignments from an uploaded sheet, row by row
func (s *LotService) BulkAssign(ctx context.Context, caller models.Caller, rows []BulkRow) ([]BulkRowResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, models.ItemFilter{})
	if err != nil {
		return nil, err
	}
	byRef := make(map[string]int64, len(items)*2)
	for _, it := range items {
		if it.ExternalRef != "" {
			byRef[strings.ToLower(it.ExternalRef)] = it.ID
		}
		if it.Email != "" {
			byRef[strings.ToLower(it.Email)] = it.ID
		}
	}

	results := make([]BulkRowResult, 0, len(rows))
	for i, row := range rows {
		res := BulkRowResult{Row: i + 1}
		itemID, ok := byRef[strings.ToLower(strings.TrimSpace(row.ItemRef))]
		if !ok {
			res.Error = "item not found: " + row.ItemRef
			results = append(results, res)
			continue
		}
		res.ItemID = itemID
		bidder, err := s.store.FindBidderByName(ctx, strings.TrimSpace(row.BidderName))
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		item, err := s.commit(ctx, itemID, bidder.ID)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		res.OK = true
		results = append(results, res)
		s.pub.Publish(newEvent(s.clock, models.EventItemSold, item))
	}
	return results, nil
}
