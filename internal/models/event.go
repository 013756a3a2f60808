package models

import "time"

// EventKind names a ledger change
type EventKind string

// EventKind constants
const (
	EventItemSold       EventKind = "item-sold"
	EventItemUnsold     EventKind = "item-unsold"
	EventItemUpdated    EventKind = "item-updated"
	EventItemRemoved    EventKind = "item-removed"
	EventBundleDrawn    EventKind = "bundle-drawn"
	EventBundleResolved EventKind = "bundle-resolved"
	EventBidderUpdated  EventKind = "bidder-updated"
	EventLedgerCleared  EventKind = "ledger-cleared"
)

// LedgerEvent is published after a ledger change commits.
// It goes to:
// 1. Redis Pub/Sub (observers re-read state over HTTP)
// 2. NATS JetStream (archival to PostgreSQL)
// It is a hint, never the authoritative state.
type LedgerEvent struct {
	EventID          string    `json:"event_id"`
	Kind             EventKind `json:"kind"`
	ItemID           int64     `json:"item_id,omitempty"`
	BidderID         int64     `json:"bidder_id,omitempty"`
	PreviousBidderID int64     `json:"previous_bidder_id,omitempty"`
	Price            int64     `json:"price"`
	Method           Method    `json:"method,omitempty"`
	Tier             string    `json:"tier,omitempty"`
	DrawID           string    `json:"draw_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}
