package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

const channelPrefix = "ledger_events:"

// RoomAll receives every ledger event
const RoomAll = "all"

// Channel returns the Pub/Sub channel for a room
func Channel(room string) string {
	return channelPrefix + room
}

// RoomFromChannel extracts the room from a channel name
// Example: "ledger_events:item-12" -> "item-12"
func RoomFromChannel(channel string) string {
	room, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return ""
	}
	return room
}

// Rooms lists the rooms an event is published to
func Rooms(event models.LedgerEvent) []string {
	rooms := []string{RoomAll}
	if event.ItemID != 0 {
		rooms = append(rooms, fmt.Sprintf("item-%d", event.ItemID))
	}
	if event.BidderID != 0 {
		rooms = append(rooms, fmt.Sprintf("bidder-%d", event.BidderID))
	}
	if event.PreviousBidderID != 0 && event.PreviousBidderID != event.BidderID {
		rooms = append(rooms, fmt.Sprintf("bidder-%d", event.PreviousBidderID))
	}
	return rooms
}

// Publisher pushes ledger events to Pub/Sub for the broadcast service
type Publisher struct {
	client *redis.Client
}

// NewPublisher wraps a connected client
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Name() string { return "redis" }

// Publish sends the event to every room it concerns in one pipeline
func (p *Publisher) Publish(ctx context.Context, event models.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := p.client.Pipeline()
	for _, room := range Rooms(event) {
		pipe.Publish(ctx, Channel(room), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
