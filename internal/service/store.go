package service

import (
	"context"
	"math/rand/v2"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// Store is the ledger of record. Mutations run inside WithTx; the
// ForUpdate getters lock the row until the transaction ends. Callers lock
// the item before any bidder and bidders in ascending id order.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetItem(ctx context.Context, id int64) (models.Item, error)
	GetItemForUpdate(ctx context.Context, id int64) (models.Item, error)
	ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	CreateItem(ctx context.Context, in models.NewItem, status models.ItemStatus) (models.Item, error)
	UpdateItem(ctx context.Context, item models.Item) error
	DeleteItem(ctx context.Context, id int64) error
	DeleteCatalogItems(ctx context.Context) (int, error)

	GetBidder(ctx context.Context, id int64) (models.Bidder, error)
	GetBidderForUpdate(ctx context.Context, id int64) (models.Bidder, error)
	FindBidderByName(ctx context.Context, name string) (models.Bidder, error)
	ListBidders(ctx context.Context) ([]models.Bidder, error)
	CreateBidder(ctx context.Context, in models.BidderInput) (models.Bidder, error)
	UpdateBidder(ctx context.Context, bidder models.Bidder) error
	DeleteBidder(ctx context.Context, id int64) error

	GetBand(ctx context.Context, id int64) (models.Band, error)
	ListBands(ctx context.Context) ([]models.Band, error)
	CreateBand(ctx context.Context, in models.BandInput) (models.Band, error)
	UpdateBand(ctx context.Context, band models.Band) error
	DeleteBand(ctx context.Context, id int64) error

	ListParticipations(ctx context.Context, bidderID int64) ([]models.Participation, error)
	AddParticipation(ctx context.Context, p models.Participation) (models.Participation, error)

	// ResetLedger releases every item, zeroes every bidder's spend and
	// count, and deletes all participations.
	ResetLedger(ctx context.Context) error
}

// Publisher receives ledger events after commit. Publish must not block.
type Publisher interface {
	Publish(event models.LedgerEvent)
}

// Rand is the randomness used by bundle draws and lot distribution.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultRand uses the process-wide generator, which is safe for concurrent use.
func DefaultRand() Rand {
	return globalRand{}
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.LedgerEvent) {}

// NopPublisher drops every event
func NopPublisher() Publisher {
	return nopPublisher{}
}

func requireAdmin(caller models.Caller) error {
	if !caller.IsAdmin() {
		return models.ErrForbidden
	}
	return nil
}
