package models

import (
	"strings"
	"time"
)

// ItemStatus is the lifecycle state of an auctioned item
type ItemStatus string

// ItemStatus constants
const (
	ItemStatusAvailable ItemStatus = "available"
	ItemStatusUnsold    ItemStatus = "unsold"
	ItemStatusSold      ItemStatus = "sold"
)

// Method records which protocol allocated an item
type Method string

// Method constants
const (
	MethodNone   Method = "none"
	MethodDirect Method = "direct"
	MethodBundle Method = "bundle"
	MethodLot    Method = "lot"
)

// Item represents an auctioned participant
type Item struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	ExternalRef string     `json:"external_ref,omitempty"`
	Category    string     `json:"category"`
	BasePrice   int64      `json:"base_price"`
	Status      ItemStatus `json:"status"`
	BidderID    *int64     `json:"bidder_id,omitempty"`
	Price       *int64     `json:"price,omitempty"`
	Method      Method     `json:"method"`
	Tier        string     `json:"tier,omitempty"`
	Pool        bool       `json:"pool"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsSold reports whether the item is allocated to a bidder
func (i Item) IsSold() bool {
	return i.Status == ItemStatusSold
}

// OwnedBy reports whether the item is sold to the given bidder
func (i Item) OwnedBy(bidderID int64) bool {
	return i.IsSold() && i.BidderID != nil && *i.BidderID == bidderID
}

// SalePrice returns the realized price, or 0 when none is recorded
func (i Item) SalePrice() int64 {
	if i.Price == nil {
		return 0
	}
	return *i.Price
}

// Allocate marks the item sold to a bidder. Bidder and price are always set together.
func (i *Item) Allocate(bidderID, price int64, method Method, tier string) {
	b, p := bidderID, price
	i.Status = ItemStatusSold
	i.BidderID = &b
	i.Price = &p
	i.Method = method
	i.Tier = tier
}

// Release clears the allocation and leaves the item Unsold
func (i *Item) Release() {
	i.Status = ItemStatusUnsold
	i.BidderID = nil
	i.Price = nil
	i.Method = MethodNone
	i.Tier = ""
}

// ItemFilter narrows item listings. Zero values match everything.
type ItemFilter struct {
	Status   ItemStatus `json:"status,omitempty"`
	BidderID *int64     `json:"bidder_id,omitempty"`
	Method   Method     `json:"method,omitempty"`
	Search   string     `json:"search,omitempty"`
	PoolOnly bool       `json:"pool_only,omitempty"`
}

// NewItem is the input for manually adding or importing an item
type NewItem struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
	Category    string `json:"category"`
	BasePrice   int64  `json:"base_price"`
	Pool        bool   `json:"pool"`
}

// Match reports whether an item passes the filter
func (f ItemFilter) Match(it Item) bool {
	if f.Status != "" && it.Status != f.Status {
		return false
	}
	if f.BidderID != nil && (it.BidderID == nil || *it.BidderID != *f.BidderID) {
		return false
	}
	if f.Method != "" && it.Method != f.Method {
		return false
	}
	if f.PoolOnly && !it.Pool && it.Status != ItemStatusUnsold {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(it.Name), q) && !strings.Contains(strings.ToLower(it.Email), q) {
			return false
		}
	}
	return true
}
