package tier

import "github.com/Ideas2IT/I2I-AuctionHub/internal/models"

// Outcome is the verdict for a proposed direct-sale price
type Outcome string

const (
	Eligible           Outcome = "eligible"
	RejectedBandFull   Outcome = "band_full"
	RejectedCapReached Outcome = "cap_reached"
)

// Decision is the result of AllowedBid. Band is set for RejectedBandFull.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Band    string  `json:"band,omitempty"`
}

// Err converts a rejection into an eligibility error, nil when eligible
func (d Decision) Err(r Rules) error {
	switch d.Outcome {
	case RejectedBandFull:
		return models.Eligibilityf("bidder already bought an item in band %s", d.Band)
	case RejectedCapReached:
		return models.Eligibilityf("all bands covered: further bids must be between %d and %d", r.CapMin, r.CapMax)
	}
	return nil
}

// Summary is a bidder's direct-sale history reduced to what the rules need
type Summary struct {
	BandCounts map[string]int `json:"band_counts"`
	Qualifying int            `json:"qualifying"`
	CapReached bool           `json:"cap_reached"`
}

// Summarize counts a bidder's direct purchases per band. Bundle and lot items
// never count, and excludeItemID drops an item being edited in place.
func Summarize(r Rules, items []models.Item, excludeItemID int64) Summary {
	s := Summary{BandCounts: make(map[string]int, len(r.Bands))}
	for _, b := range r.Bands {
		s.BandCounts[b.Label] = 0
	}
	floor := r.Floor()
	for _, it := range items {
		if it.ID == excludeItemID || !it.IsSold() || it.Price == nil {
			continue
		}
		if it.Method != models.MethodDirect && it.Method != models.MethodNone {
			continue
		}
		price := *it.Price
		if b, ok := r.BandFor(price); ok {
			s.BandCounts[b.Label]++
		}
		if price >= floor {
			s.Qualifying++
		}
	}
	s.CapReached = s.allCovered() && s.Qualifying >= r.CapCount
	return s
}

func (s Summary) allCovered() bool {
	for _, n := range s.BandCounts {
		if n < 1 {
			return false
		}
	}
	return len(s.BandCounts) > 0
}

// AllowedBid decides whether a bidder with history s may buy at price
func AllowedBid(r Rules, s Summary, price int64) Decision {
	if s.CapReached {
		if price >= r.CapMin && price <= r.CapMax {
			return Decision{Outcome: Eligible}
		}
		return Decision{Outcome: RejectedCapReached}
	}
	if b, ok := r.BandFor(price); ok && s.BandCounts[b.Label] >= 1 {
		return Decision{Outcome: RejectedBandFull, Band: b.Label}
	}
	return Decision{Outcome: Eligible}
}

// OpenBands lists the bands the bidder can still buy in, empty once capped
func OpenBands(r Rules, s Summary) []Band {
	if s.CapReached {
		return []Band{}
	}
	open := make([]Band, 0, len(r.Bands))
	for _, b := range r.Bands {
		if s.BandCounts[b.Label] == 0 {
			open = append(open, b)
		}
	}
	return open
}

// Status is the read-side view of a bidder's tier standing
type Status struct {
	BidderID  int64   `json:"bidder_id"`
	Summary   Summary `json:"summary"`
	OpenBands []Band  `json:"open_bands"`
	CapMin    int64   `json:"cap_min"`
	CapMax    int64   `json:"cap_max"`
}

// StatusFor builds the tier status for a bidder's sold items
func StatusFor(r Rules, bidderID int64, items []models.Item) Status {
	s := Summarize(r, items, 0)
	return Status{
		BidderID:  bidderID,
		Summary:   s,
		OpenBands: OpenBands(r, s),
		CapMin:    r.CapMin,
		CapMax:    r.CapMax,
	}
}
