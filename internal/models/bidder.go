package models

import "time"

// DefaultBudget is the budget given to bidders created without one
const DefaultBudget int64 = 100000

// Bidder represents a team taking part in the auction
type Bidder struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Budget      int64     `json:"budget"`
	Spend       int64     `json:"spend"`
	ItemCount   int       `json:"item_count"`
	MinQuota    int       `json:"min_quota"`
	Captain     string    `json:"captain,omitempty"`
	ViceCaptain string    `json:"vice_captain,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Remaining returns the unspent budget. Legacy rows may make it negative.
func (b Bidder) Remaining() int64 {
	return b.Budget - b.Spend
}

// Charge records a purchase against the bidder
func (b *Bidder) Charge(price int64) {
	b.Spend += price
	b.ItemCount++
}

// Refund reverses a purchase, never going below zero
func (b *Bidder) Refund(price int64) {
	b.Spend -= price
	if b.Spend < 0 {
		b.Spend = 0
	}
	b.ItemCount--
	if b.ItemCount < 0 {
		b.ItemCount = 0
	}
}

// BidderInput carries the editable bidder fields
type BidderInput struct {
	Name        string `json:"name"`
	Budget      int64  `json:"budget"`
	MinQuota    int    `json:"min_quota"`
	Captain     string `json:"captain,omitempty"`
	ViceCaptain string `json:"vice_captain,omitempty"`
}

// BidderDetail is a bidder with the items it owns, highest price first
type BidderDetail struct {
	Bidder
	Items []Item `json:"items"`
}
