package service

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// DrawStore keeps resolved draws between the draw and its finalization
type DrawStore interface {
	Save(ctx context.Context, draw models.Draw, ttl time.Duration) error
	Get(ctx context.Context, id string) (models.Draw, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// BundleService runs randomized multi-bidder draws over price bands
type BundleService struct {
	store   Store
	draws   DrawStore
	rand    Rand
	pub     Publisher
	clock   clock.Clock
	drawTTL time.Duration
}

const defaultDrawTTL = 30 * time.Minute

// BundleOption configures a BundleService
type BundleOption func(*BundleService)

// WithDrawTTL overrides how long a draw waits for finalization
func WithDrawTTL(d time.Duration) BundleOption {
	return func(s *BundleService) {
		if d > 0 {
			s.drawTTL = d
		}
	}
}

// WithRand replaces the random source used to pick winners
func WithRand(r Rand) BundleOption {
	return func(s *BundleService) {
		if r != nil {
			s.rand = r
		}
	}
}

// NewBundleService creates a new bundle draw service
func NewBundleService(store Store, draws DrawStore, pub Publisher, clk clock.Clock, opts ...BundleOption) *BundleService {
	svc := &BundleService{
		store:   store,
		draws:   draws,
		rand:    DefaultRand(),
		pub:     pub,
		clock:   clk,
		drawTTL: defaultDrawTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ListBands returns bands ordered by value, highest first
func (s *BundleService) ListBands(ctx context.Context) ([]models.Band, error) {
	return s.store.ListBands(ctx)
}

// CreateBand adds a price band
func (s *BundleService) CreateBand(ctx context.Context, caller models.Caller, in models.BandInput) (models.Band, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Band{}, err
	}
	in, err := normalizeBand(in)
	if err != nil {
		return models.Band{}, err
	}
	return s.store.CreateBand(ctx, in)
}

// UpdateBand edits a price band. Past participations are untouched.
func (s *BundleService) UpdateBand(ctx context.Context, caller models.Caller, id int64, in models.BandInput) (models.Band, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Band{}, err
	}
	in, err := normalizeBand(in)
	if err != nil {
		return models.Band{}, err
	}
	band := models.Band{ID: id, Letter: in.Letter, Value: in.Value, MinBid: in.MinBid, MaxBid: in.MaxBid}
	if err := s.store.UpdateBand(ctx, band); err != nil {
		return models.Band{}, err
	}
	return band, nil
}

// DeleteBand removes a price band. Past participations are untouched.
func (s *BundleService) DeleteBand(ctx context.Context, caller models.Caller, id int64) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return s.store.DeleteBand(ctx, id)
}

func normalizeBand(in models.BandInput) (models.BandInput, error) {
	in.Letter = strings.ToUpper(strings.TrimSpace(in.Letter))
	if utf8.RuneCountInString(in.Letter) != 1 {
		return in, models.Validationf("band letter must be a single character")
	}
	if in.Value <= 0 {
		return in, models.Validationf("band value must be positive")
	}
	if in.MinBid < 0 || in.MaxBid < 0 {
		return in, models.Validationf("band limits must not be negative")
	}
	if in.MinBid > 0 && in.MaxBid > 0 && in.MinBid > in.MaxBid {
		return in, models.Validationf("band min %d exceeds max %d", in.MinBid, in.MaxBid)
	}
	return in, nil
}

// DrawInput selects a band, the competing bidders and the uniform bid
type DrawInput struct {
	ItemID    int64   `json:"item_id"`
	BandID    int64   `json:"band_id"`
	BidderIDs []int64 `json:"bidder_ids"`
	Amount    int64   `json:"amount"`
}

// Draw picks a winner uniformly among the selected bidders and records a
// participation for every one of them. The participations stand whether or
// not the draw is later finalized.
func (s *BundleService) Draw(ctx context.Context, caller models.Caller, in DrawInput) (models.Draw, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Draw{}, err
	}
	ids := slices.Clone(in.BidderIDs)
	slices.Sort(ids)
	if len(slices.Compact(ids)) != len(in.BidderIDs) {
		return models.Draw{}, models.Validationf("bidders must be distinct")
	}
	if len(in.BidderIDs) < 2 {
		return models.Draw{}, models.Validationf("a bundle draw needs at least two bidders")
	}
	if in.Amount <= 0 {
		return models.Draw{}, models.Validationf("amount must be positive")
	}

	band, err := s.store.GetBand(ctx, in.BandID)
	if err != nil {
		return models.Draw{}, err
	}
	if !band.Accepts(in.Amount) {
		return models.Draw{}, models.Validationf("amount %d is outside band %s limits", in.Amount, band.Letter)
	}
	item, err := s.store.GetItem(ctx, in.ItemID)
	if err != nil {
		return models.Draw{}, err
	}
	if item.IsSold() {
		return models.Draw{}, models.ErrItemSold
	}

	now := s.clock.Now()
	draw := models.Draw{
		ID:           uuid.New().String(),
		ItemID:       item.ID,
		BandID:       band.ID,
		BandLetter:   band.Letter,
		Amount:       in.Amount,
		Participants: slices.Clone(in.BidderIDs),
		CreatedAt:    now,
	}

	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		bidders, err := lockBidders(txCtx, s.store, in.BidderIDs)
		if err != nil {
			return err
		}
		for _, id := range in.BidderIDs {
			bidder, ok := bidders[id]
			if !ok {
				return models.NotFoundf("bidder %d not found", id)
			}
			if in.Amount > bidder.Remaining() {
				return models.Budgetf("amount %d exceeds remaining budget %d of %s", in.Amount, bidder.Remaining(), bidder.Name)
			}
			history, err := s.store.ListParticipations(txCtx, id)
			if err != nil {
				return err
			}
			st := models.NewBandStatus(id, band.ID, history)
			if st.HasWonInBand {
				return models.Eligibilityf("%s already won in band %s", bidder.Name, band.Letter)
			}
			if !st.CanParticipate {
				return models.Eligibilityf("%s already has %d bundle wins", bidder.Name, st.TotalWins)
			}
		}

		draw.WinnerID = in.BidderIDs[s.rand.IntN(len(in.BidderIDs))]
		for _, id := range in.BidderIDs {
			result := models.ResultLost
			if id == draw.WinnerID {
				result = models.ResultWon
			}
			_, err := s.store.AddParticipation(txCtx, models.Participation{
				BidderID:  id,
				BandID:    band.ID,
				Amount:    in.Amount,
				Result:    result,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Draw{}, err
	}

	if err := s.draws.Save(ctx, draw, s.drawTTL); err != nil {
		// The participations are committed; the admin can still sell the item directly.
		logger.Errorf("[BUNDLE] failed to save draw %s: %v", draw.ID, err)
		return draw, err
	}

	logger.Infof("[BUNDLE] draw %s for item %d in band %s: winner %d of %d",
		draw.ID, draw.ItemID, draw.BandLetter, draw.WinnerID, len(draw.Participants))
	s.pub.Publish(models.LedgerEvent{
		EventID:   uuid.New().String(),
		Kind:      models.EventBundleDrawn,
		ItemID:    draw.ItemID,
		BidderID:  draw.WinnerID,
		Price:     draw.Amount,
		Method:    models.MethodBundle,
		Tier:      draw.BandLetter,
		DrawID:    draw.ID,
		Timestamp: now,
	})
	return draw, nil
}

// GetDraw returns a pending draw
func (s *BundleService) GetDraw(ctx context.Context, id string) (models.Draw, error) {
	return s.draws.Get(ctx, id)
}

// Finalize sells the item to the draw winner at the drawn amount. The base
// price floor and budget apply; direct-sale tier bands do not.
func (s *BundleService) Finalize(ctx context.Context, caller models.Caller, drawID string) (models.Item, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Item{}, err
	}
	draw, err := s.draws.Get(ctx, drawID)
	if err != nil {
		return models.Item{}, err
	}

	var result models.Item
	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.store.GetItemForUpdate(txCtx, draw.ItemID)
		if err != nil {
			return err
		}
		if item.IsSold() {
			return models.ErrItemSold
		}
		bidder, err := s.store.GetBidderForUpdate(txCtx, draw.WinnerID)
		if err != nil {
			return err
		}
		if draw.Amount < item.BasePrice {
			return models.Validationf("amount %d is below base price %d", draw.Amount, item.BasePrice)
		}
		if draw.Amount > bidder.Remaining() {
			return models.Budgetf("amount %d exceeds remaining budget %d of %s", draw.Amount, bidder.Remaining(), bidder.Name)
		}
		item.Allocate(bidder.ID, draw.Amount, models.MethodBundle, draw.BandLetter)
		bidder.Charge(draw.Amount)
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

	if err := s.draws.Delete(ctx, drawID); err != nil {
		logger.Warningf("[BUNDLE] failed to remove finalized draw %s: %v", drawID, err)
	}
	logger.Infof("[BUNDLE] draw %s finalized: item %d to bidder %d for %d", drawID, result.ID, draw.WinnerID, draw.Amount)
	event := newEvent(s.clock, models.EventBundleResolved, result)
	event.DrawID = drawID
	s.pub.Publish(event)
	return result, nil
}

// Discard abandons a pending draw. Its participations stand.
func (s *BundleService) Discard(ctx context.Context, caller models.Caller, drawID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if _, err := s.draws.Get(ctx, drawID); err != nil {
		return err
	}
	return s.draws.Delete(ctx, drawID)
}

// BandStatus reports whether a bidder may still enter draws in a band
func (s *BundleService) BandStatus(ctx context.Context, bidderID, bandID int64) (models.BandStatus, error) {
	if _, err := s.store.GetBidder(ctx, bidderID); err != nil {
		return models.BandStatus{}, err
	}
	if _, err := s.store.GetBand(ctx, bandID); err != nil {
		return models.BandStatus{}, err
	}
	history, err := s.store.ListParticipations(ctx, bidderID)
	if err != nil {
		return models.BandStatus{}, err
	}
	return models.NewBandStatus(bidderID, bandID, history), nil
}

// Participations lists a bidder's bundle history, newest first
func (s *BundleService) Participations(ctx context.Context, bidderID int64) ([]models.Participation, error) {
	if _, err := s.store.GetBidder(ctx, bidderID); err != nil {
		return nil, err
	}
	return s.store.ListParticipations(ctx, bidderID)
}
