package models

import "time"

// Band is a bundle price band. Zero MinBid or MaxBid leaves that side open.
type Band struct {
	ID     int64  `json:"id"`
	Letter string `json:"letter"`
	Value  int64  `json:"value"`
	MinBid int64  `json:"min_bid"`
	MaxBid int64  `json:"max_bid"`
}

// Accepts reports whether amount lies within the band limits
func (b Band) Accepts(amount int64) bool {
	if b.MinBid > 0 && amount < b.MinBid {
		return false
	}
	if b.MaxBid > 0 && amount > b.MaxBid {
		return false
	}
	return true
}

// BandInput carries the editable band fields
type BandInput struct {
	Letter string `json:"letter"`
	Value  int64  `json:"value"`
	MinBid int64  `json:"min_bid"`
	MaxBid int64  `json:"max_bid"`
}

// DrawResult is the outcome of one bidder in a bundle draw
type DrawResult string

// DrawResult constants
const (
	ResultWon  DrawResult = "won"
	ResultLost DrawResult = "lost"
)

// MaxBundleWins is the lifetime number of bundle wins a bidder may hold
const MaxBundleWins = 3

// Participation is one bidder's row in the append-only bundle ledger
type Participation struct {
	ID        int64      `json:"id"`
	BidderID  int64      `json:"bidder_id"`
	BandID    int64      `json:"band_id"`
	Amount    int64      `json:"amount"`
	Result    DrawResult `json:"result"`
	CreatedAt time.Time  `json:"created_at"`
}

// BandStatus summarises a bidder's standing for one band
type BandStatus struct {
	BidderID       int64           `json:"bidder_id"`
	BandID         int64           `json:"band_id"`
	CanParticipate bool            `json:"can_participate"`
	HasWonInBand   bool            `json:"has_won_in_band"`
	TotalWins      int             `json:"total_wins"`
	Participations []Participation `json:"participations"`
}

// NewBandStatus evaluates bundle eligibility from a bidder's participation history
func NewBandStatus(bidderID, bandID int64, history []Participation) BandStatus {
	st := BandStatus{BidderID: bidderID, BandID: bandID, Participations: history}
	for _, p := range history {
		if p.Result != ResultWon {
			continue
		}
		st.TotalWins++
		if p.BandID == bandID {
			st.HasWonInBand = true
		}
	}
	st.CanParticipate = !st.HasWonInBand && st.TotalWins < MaxBundleWins
	return st
}

// Draw is a resolved bundle draw waiting for finalization
type Draw struct {
	ID           string    `json:"id"`
	ItemID       int64     `json:"item_id"`
	BandID       int64     `json:"band_id"`
	BandLetter   string    `json:"band_letter"`
	Amount       int64     `json:"amount"`
	WinnerID     int64     `json:"winner_id"`
	Participants []int64   `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefaultBands are the bundle bands seeded into a new ledger
func DefaultBands() []BandInput {
	return []BandInput{
		{Letter: "A", Value: 300, MinBid: 280, MaxBid: 350},
		{Letter: "B", Value: 150, MinBid: 120, MaxBid: 180},
		{Letter: "C", Value: 75, MinBid: 50, MaxBid: 120},
	}
}
