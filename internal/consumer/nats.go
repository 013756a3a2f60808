package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/events"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// DurableName identifies the archival consumer on the stream
const DurableName = "archival-worker"

// Archiver persists ledger events
type Archiver interface {
	InsertEvent(ctx context.Context, event models.LedgerEvent) (bool, error)
}

// NATSConsumer drains the ledger stream into the archive
type NATSConsumer struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	archive  Archiver
	dbWait   time.Duration
	consumer jetstream.ConsumeContext
}

// NewNATSConsumer connects to NATS and ensures the stream exists
func NewNATSConsumer(ctx context.Context, natsURL string, archive Archiver) (*NATSConsumer, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if _, err := events.EnsureStream(ctx, js); err != nil {
		conn.Close()
		return nil, err
	}
	return &NATSConsumer{conn: conn, js: js, archive: archive, dbWait: 10 * time.Second}, nil
}

// Start consumes until ctx is cancelled
func (c *NATSConsumer) Start(ctx context.Context) error {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, events.StreamName, jetstream.ConsumerConfig{
		Durable:       DurableName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: events.SubjectPrefix + "*",
		AckWait:       30 * time.Second,
		MaxDeliver:    10,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}
	c.consumer = cc
	logger.Infof("[NATS] consuming %s on stream %s", events.SubjectPrefix+"*", events.StreamName)

	<-ctx.Done()
	cc.Stop()
	c.consumer = nil
	return nil
}

type outcome int

const (
	ack outcome = iota
	retry
	drop
)

func (c *NATSConsumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var err error
	switch c.process(ctx, msg.Data()) {
	case ack:
		err = msg.Ack()
	case retry:
		err = msg.Nak()
	case drop:
		err = msg.Term()
	}
	if err != nil {
		logger.Warningf("[NATS] failed to settle message on %s: %v", msg.Subject(), err)
	}
}

// process archives one payload and decides how the message is settled.
// Malformed payloads are terminated; storage failures are redelivered.
func (c *NATSConsumer) process(ctx context.Context, data []byte) outcome {
	var event models.LedgerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Errorf("[NATS] failed to unmarshal event: %v", err)
		return drop
	}
	if event.EventID == "" {
		logger.Errorf("[NATS] event without id, kind %q", event.Kind)
		return drop
	}

	dbCtx, cancel := context.WithTimeout(ctx, c.dbWait)
	defer cancel()

	inserted, err := c.archive.InsertEvent(dbCtx, event)
	if err != nil {
		logger.Errorf("[NATS] failed to archive event %s: %v", event.EventID, err)
		return retry
	}
	if inserted {
		logger.Infof("[NATS] archived %s %s (item %d, bidder %d, price %d)",
			event.Kind, event.EventID, event.ItemID, event.BidderID, event.Price)
	} else {
		logger.Infof("[NATS] duplicate event %s ignored", event.EventID)
	}
	return ack
}

func (c *NATSConsumer) Close() error {
	if c.consumer != nil {
		c.consumer.Stop()
	}
	c.conn.Close()
	return nil
}
