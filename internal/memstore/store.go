// Package memstore is an in-process ledger store.
//
// A single writer lock is held for the whole of a transaction. Writes go to
// a private copy of the state that replaces the committed state only when
// the transaction function returns nil, so a failed transaction leaves no
// trace. Readers outside a transaction always see committed state.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

type state struct {
	items   map[int64]models.Item
	bidders map[int64]models.Bidder
	bands   map[int64]models.Band
	parts   []models.Participation

	nextItem, nextBidder, nextBand, nextPart int64
}

func (s *state) clone() *state {
	c := *s
	c.items = maps.Clone(s.items)
	c.bidders = maps.Clone(s.bidders)
	c.bands = maps.Clone(s.bands)
	c.parts = slices.Clone(s.parts)
	return &c
}

// Store keeps the ledger in memory
type Store struct {
	writer    sync.Mutex
	mu        sync.RWMutex
	committed *state
	clock     clock.Clock
}

// New returns a store seeded with the default bundle bands
func New(clk clock.Clock) *Store {
	s := &Store{
		clock: clk,
		committed: &state{
			items:   make(map[int64]models.Item),
			bidders: make(map[int64]models.Bidder),
			bands:   make(map[int64]models.Band),
		},
	}
	for _, b := range models.DefaultBands() {
		_, _ = s.CreateBand(context.Background(), b)
	}
	return s
}

type txKey struct{}

func txState(ctx context.Context) *state {
	st, _ := ctx.Value(txKey{}).(*state)
	return st
}

// WithTx runs fn as one transaction. Nested calls join the outer one.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txState(ctx) != nil {
		return fn(ctx)
	}
	s.writer.Lock()
	defer s.writer.Unlock()

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if st := txState(ctx); st != nil {
		return fn(st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.committed)
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.WithTx(ctx, func(txCtx context.Context) error {
		return fn(txState(txCtx))
	})
}

func (s *Store) GetItem(ctx context.Context, id int64) (models.Item, error) {
	var out models.Item
	err := s.read(ctx, func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return models.ErrItemNotFound
		}
		out = it
		return nil
	})
	return out, err
}

// GetItemForUpdate is GetItem; the writer lock already serializes transactions.
func (s *Store) GetItemForUpdate(ctx context.Context, id int64) (models.Item, error) {
	return s.GetItem(ctx, id)
}

func (s *Store) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	var out []models.Item
	err := s.read(ctx, func(st *state) error {
		out = make([]models.Item, 0, len(st.items))
		for _, it := range st.items {
			if filter.Match(it) {
				out = append(out, it)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *Store) CreateItem(ctx context.Context, in models.NewItem, status models.ItemStatus) (models.Item, error) {
	var out models.Item
	err := s.write(ctx, func(st *state) error {
		st.nextItem++
		now := s.clock.Now()
		out = models.Item{
			ID:          st.nextItem,
			Name:        in.Name,
			Email:       in.Email,
			ExternalRef: in.ExternalRef,
			Category:    in.Category,
			BasePrice:   in.BasePrice,
			Status:      status,
			Method:      models.MethodNone,
			Pool:        in.Pool,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		st.items[out.ID] = out
		return nil
	})
	return out, err
}

func (s *Store) UpdateItem(ctx context.Context, item models.Item) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.items[item.ID]; !ok {
			return models.ErrItemNotFound
		}
		item.UpdatedAt = s.clock.Now()
		st.items[item.ID] = item
		return nil
	})
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.items[id]; !ok {
			return models.ErrItemNotFound
		}
		delete(st.items, id)
		return nil
	})
}

func (s *Store) DeleteCatalogItems(ctx context.Context) (int, error) {
	n := 0
	err := s.write(ctx, func(st *state) error {
		for id, it := range st.items {
			if !it.Pool {
				delete(st.items, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) GetBidder(ctx context.Context, id int64) (models.Bidder, error) {
	var out models.Bidder
	err := s.read(ctx, func(st *state) error {
		b, ok := st.bidders[id]
		if !ok {
			return models.ErrBidderNotFound
		}
		out = b
		return nil
	})
	return out, err
}

func (s *Store) GetBidderForUpdate(ctx context.Context, id int64) (models.Bidder, error) {
	return s.GetBidder(ctx, id)
}

func (s *Store) FindBidderByName(ctx context.Context, name string) (models.Bidder, error) {
	var out models.Bidder
	err := s.read(ctx, func(st *state) error {
		for _, b := range st.bidders {
			if strings.EqualFold(b.Name, name) {
				out = b
				return nil
			}
		}
		return models.NotFoundf("bidder %q not found", name)
	})
	return out, err
}

func (s *Store) ListBidders(ctx context.Context) ([]models.Bidder, error) {
	var out []models.Bidder
	err := s.read(ctx, func(st *state) error {
		out = slices.Collect(maps.Values(st.bidders))
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func nameTaken(st *state, name string, except int64) bool {
	for _, b := range st.bidders {
		if b.ID != except && strings.EqualFold(b.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) CreateBidder(ctx context.Context, in models.BidderInput) (models.Bidder, error) {
	var out models.Bidder
	err := s.write(ctx, func(st *state) error {
		if nameTaken(st, in.Name, 0) {
			return models.ErrBidderExists
		}
		st.nextBidder++
		out = models.Bidder{
			ID:          st.nextBidder,
			Name:        in.Name,
			Budget:      in.Budget,
			MinQuota:    in.MinQuota,
			Captain:     in.Captain,
			ViceCaptain: in.ViceCaptain,
			CreatedAt:   s.clock.Now(),
		}
		st.bidders[out.ID] = out
		return nil
	})
	return out, err
}

func (s *Store) UpdateBidder(ctx context.Context, bidder models.Bidder) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.bidders[bidder.ID]; !ok {
			return models.ErrBidderNotFound
		}
		if nameTaken(st, bidder.Name, bidder.ID) {
			return models.ErrBidderExists
		}
		st.bidders[bidder.ID] = bidder
		return nil
	})
}

func (s *Store) DeleteBidder(ctx context.Context, id int64) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.bidders[id]; !ok {
			return models.ErrBidderNotFound
		}
		delete(st.bidders, id)
		return nil
	})
}

func (s *Store) GetBand(ctx context.Context, id int64) (models.Band, error) {
	var out models.Band
	err := s.read(ctx, func(st *state) error {
		b, ok := st.bands[id]
		if !ok {
			return models.ErrBandNotFound
		}
		out = b
		return nil
	})
	return out, err
}

func (s *Store) ListBands(ctx context.Context) ([]models.Band, error) {
	var out []models.Band
	err := s.read(ctx, func(st *state) error {
		out = slices.Collect(maps.Values(st.bands))
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out, err
}

func valueTaken(st *state, value, except int64) bool {
	for _, b := range st.bands {
		if b.ID != except && b.Value == value {
			return true
		}
	}
	return false
}

func (s *Store) CreateBand(ctx context.Context, in models.BandInput) (models.Band, error) {
	var out models.Band
	err := s.write(ctx, func(st *state) error {
		if valueTaken(st, in.Value, 0) {
			return models.ErrBandExists
		}
		st.nextBand++
		out = models.Band{ID: st.nextBand, Letter: in.Letter, Value: in.Value, MinBid: in.MinBid, MaxBid: in.MaxBid}
		st.bands[out.ID] = out
		return nil
	})
	return out, err
}

func (s *Store) UpdateBand(ctx context.Context, band models.Band) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.bands[band.ID]; !ok {
			return models.ErrBandNotFound
		}
		if valueTaken(st, band.Value, band.ID) {
			return models.ErrBandExists
		}
		st.bands[band.ID] = band
		return nil
	})
}

func (s *Store) DeleteBand(ctx context.Context, id int64) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.bands[id]; !ok {
			return models.ErrBandNotFound
		}
		delete(st.bands, id)
		return nil
	})
}

func (s *Store) ListParticipations(ctx context.Context, bidderID int64) ([]models.Participation, error) {
	var out []models.Participation
	err := s.read(ctx, func(st *state) error {
		out = make([]models.Participation, 0)
		for i := len(st.parts) - 1; i >= 0; i-- {
			if st.parts[i].BidderID == bidderID {
				out = append(out, st.parts[i])
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) AddParticipation(ctx context.Context, p models.Participation) (models.Participation, error) {
	err := s.write(ctx, func(st *state) error {
		st.nextPart++
		p.ID = st.nextPart
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.clock.Now()
		}
		st.parts = append(st.parts, p)
		return nil
	})
	return p, err
}

func (s *Store) ResetLedger(ctx context.Context) error {
	return s.write(ctx, func(st *state) error {
		now := s.clock.Now()
		for id, it := range st.items {
			it.Release()
			it.UpdatedAt = now
			st.items[id] = it
		}
		for id, b := range st.bidders {
			b.Spend, b.ItemCount = 0, 0
			st.bidders[id] = b
		}
		st.parts = nil
		return nil
	})
}
