package redis_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/redis"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/testutil"
)

func TestRooms(t *testing.T) {
	rooms := redis.Rooms(models.LedgerEvent{ItemID: 4, BidderID: 2, PreviousBidderID: 9})
	check.Equal(t, []string{"all", "item-4", "bidder-2", "bidder-9"}, rooms)

	check.Equal(t, []string{"all"}, redis.Rooms(models.LedgerEvent{Kind: models.EventLedgerCleared}))
	check.Equal(t, "item-4", redis.RoomFromChannel("ledger_events:item-4"))
	check.Equal(t, "", redis.RoomFromChannel("audit:item-4"))
}

func TestDrawStore(t *testing.T) {
	ctx := context.Background()
	store := redis.NewDrawStore(testutil.NewTestRedis(t))

	draw := models.Draw{ID: "d1", ItemID: 3, BandLetter: "A", Amount: 300, WinnerID: 7, Participants: []int64{7, 8}}
	assert.NoError(t, store.Save(ctx, draw, time.Minute))

	got, err := store.Get(ctx, "d1")
	assert.NoError(t, err)
	check.Equal(t, draw.WinnerID, got.WinnerID)
	check.Equal(t, draw.Participants, got.Participants)

	assert.NoError(t, store.Save(ctx, models.Draw{ID: "d2"}, time.Minute))
	assert.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx, "d2")
	check.True(t, errors.Is(err, models.ErrDrawNotFound))

	assert.NoError(t, store.Save(ctx, models.Draw{ID: "d3"}, time.Minute))
	assert.NoError(t, store.Delete(ctx, "d3"))
	_, err = store.Get(ctx, "d3")
	check.True(t, errors.Is(err, models.ErrDrawNotFound))
}

func TestPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := testutil.NewTestRedis(t)

	sub := redis.NewSubscriber(client)
	assert.NoError(t, sub.SubscribeAll(ctx))
	defer sub.Close()

	out := make(chan *redis.Message, 8)
	go func() { _ = sub.Listen(ctx, out) }()

	pub := redis.NewPublisher(client)
	assert.NoError(t, pub.Publish(ctx, models.LedgerEvent{EventID: "e1", Kind: models.EventItemSold, ItemID: 5}))

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case msg := <-out:
			var event models.LedgerEvent
			assert.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
			check.Equal(t, "e1", event.EventID)
			seen[msg.Room] = true
		case <-ctx.Done():
			t.Fatalf("timed out, saw rooms %v", seen)
		}
	}
	check.True(t, seen["all"])
	check.True(t, seen["item-5"])
}
