package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

const (
	// StreamName is the JetStream stream holding ledger events for archival
	StreamName = "LEDGER_EVENTS"
	// SubjectPrefix prefixes the per-kind subject, e.g. ledger.events.item-sold
	SubjectPrefix = "ledger.events."
)

// Subject returns the archival subject for an event kind
func Subject(kind models.EventKind) string {
	return SubjectPrefix + string(kind)
}

// EnsureStream creates or updates the ledger stream
func EnsureStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Ledger events for archival",
		Subjects:    []string{SubjectPrefix + "*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}
	return stream, nil
}

// JetStreamPublisher sends events to JetStream for at-least-once archival
type JetStreamPublisher struct {
	js jetstream.JetStream
}

// NewJetStreamPublisher creates the JetStream context and ensures the stream exists
func NewJetStreamPublisher(ctx context.Context, conn *nats.Conn) (*JetStreamPublisher, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if _, err := EnsureStream(ctx, js); err != nil {
		return nil, err
	}
	logger.Infof("[JETSTREAM] Stream '%s' ready", StreamName)
	return &JetStreamPublisher{js: js}, nil
}

func (p *JetStreamPublisher) Name() string { return "jetstream" }

func (p *JetStreamPublisher) Publish(ctx context.Context, event models.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	// Msg-Id lets the server drop duplicates inside its dedup window
	if _, err := p.js.Publish(ctx, Subject(event.Kind), data, jetstream.WithMsgID(event.EventID)); err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}
	return nil
}
