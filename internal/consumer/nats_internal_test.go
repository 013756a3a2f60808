package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

type fakeArchive struct {
	seen map[string]bool
	err  error
}

func (f *fakeArchive) InsertEvent(_ context.Context, event models.LedgerEvent) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[event.EventID] {
		return false, nil
	}
	f.seen[event.EventID] = true
	return true, nil
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	store := &fakeArchive{seen: map[string]bool{}}
	c := &NATSConsumer{archive: store, dbWait: time.Second}

	payload := []byte(`{"event_id":"e1","kind":"item-sold","item_id":3,"bidder_id":1,"price":150,"timestamp":"2025-03-01T09:00:00Z"}`)
	check.Equal(t, ack, c.process(ctx, payload))
	check.True(t, store.seen["e1"])

	// redelivery is acknowledged without a second row
	check.Equal(t, ack, c.process(ctx, payload))

	check.Equal(t, drop, c.process(ctx, []byte(`not json`)))
	check.Equal(t, drop, c.process(ctx, []byte(`{"kind":"item-sold"}`)))

	store.err = errors.New("db down")
	check.Equal(t, retry, c.process(ctx, []byte(`{"event_id":"e2","kind":"item-unsold"}`)))
}
