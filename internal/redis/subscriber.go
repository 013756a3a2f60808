package redis

import (
	"context"
	"fmt"

	"github.com/google/logger"
	"github.com/redis/go-redis/v9"
)

// Message is one Pub/Sub delivery addressed to a room
type Message struct {
	Room    string
	Payload string
}

// Subscriber wraps Redis Pub/Sub for the broadcast service
type Subscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
}

// NewSubscriber wraps a connected client
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// SubscribeAll subscribes to every room with PSUBSCRIBE ledger_events:*
func (s *Subscriber) SubscribeAll(ctx context.Context) error {
	s.pubsub = s.client.PSubscribe(ctx, channelPrefix+"*")
	// Receive blocks until the subscription is confirmed
	if _, err := s.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// Listen forwards messages until ctx is cancelled. Run in a goroutine.
func (s *Subscriber) Listen(ctx context.Context, out chan<- *Message) error {
	if s.pubsub == nil {
		return fmt.Errorf("not subscribed to any channel")
	}

	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription closed")
			}
			room := RoomFromChannel(msg.Channel)
			if room == "" {
				logger.Warningf("[REDIS] ignoring message on unexpected channel %q", msg.Channel)
				continue
			}
			select {
			case out <- &Message{Room: room, Payload: msg.Payload}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close closes the subscription; the client is owned by the caller
func (s *Subscriber) Close() error {
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
