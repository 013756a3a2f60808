package service

import (
	"context"
	"errors"
	"slices"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// lockBidders locks bidders in ascending id order so two transactions that
// touch the same pair never wait on each other in opposite order. Missing
// bidders are left out of the result.
func lockBidders(ctx context.Context, store Store, ids []int64) (map[int64]models.Bidder, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make(map[int64]models.Bidder, len(sorted))
	for _, id := range sorted {
		b, err := store.GetBidderForUpdate(ctx, id)
		if errors.Is(err, models.ErrBidderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = b
	}
	return out, nil
}
