package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/logger"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// Sink delivers ledger events to one downstream system
type Sink interface {
	Name() string
	Publish(ctx context.Context, event models.LedgerEvent) error
}

// Fanout hands every event to each sink on its own goroutine.
// Publish never blocks the write path; failures are logged and dropped.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewFanout creates a fan-out publisher over the given sinks
func NewFanout(timeout time.Duration, sinks ...Sink) *Fanout {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fanout{sinks: sinks, timeout: timeout}
}

func (f *Fanout) Publish(event models.LedgerEvent) {
	for _, sink := range f.sinks {
		f.wg.Add(1)
		go func(sink Sink) {
			defer f.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
			defer cancel()
			if err := sink.Publish(ctx, event); err != nil {
				logger.Warningf("[EVENTS] %s: failed to publish %s (%s): %v", sink.Name(), event.Kind, event.EventID, err)
			}
		}(sink)
	}
}

// Wait blocks until in-flight publishes finish. Called on shutdown.
func (f *Fanout) Wait() {
	f.wg.Wait()
}
