// Package tier decides which direct-sale prices remain open to a bidder.
//
// Direct prices are split into disjoint bands. A bidder may buy at most one
// item per band. Once every band is covered and the qualifying count reaches
// the cap, further direct purchases are limited to a fixed low range below
// the lowest band.
package tier

import (
	"fmt"
	"sort"
)

// Band is an inclusive direct-sale price band
type Band struct {
	Label string `yaml:"label" json:"label"`
	Min   int64  `yaml:"min" json:"min"`
	Max   int64  `yaml:"max" json:"max"`
}

// Contains reports whether price lies inside the band
func (b Band) Contains(price int64) bool {
	return price >= b.Min && price <= b.Max
}

// Rules configures the eligibility engine
type Rules struct {
	Bands           []Band `yaml:"bands" json:"bands"`
	CapCount        int    `yaml:"cap_count" json:"cap_count"`
	CapMin          int64  `yaml:"cap_min" json:"cap_min"`
	CapMax          int64  `yaml:"cap_max" json:"cap_max"`
	QualifyingFloor int64  `yaml:"qualifying_floor,omitempty" json:"qualifying_floor"`
}

// DefaultRules returns the bands used at the live event
func DefaultRules() Rules {
	return Rules{
		Bands: []Band{
			{Label: "A", Min: 151, Max: 200},
			{Label: "B", Min: 121, Max: 150},
			{Label: "C", Min: 101, Max: 120},
		},
		CapCount: 3,
		CapMin:   10,
		CapMax:   100,
	}
}

// Validate checks band layout and the cap range
func (r Rules) Validate() error {
	if len(r.Bands) == 0 {
		return fmt.Errorf("at least one band is required")
	}
	if r.CapCount <= 0 {
		return fmt.Errorf("cap_count must be positive")
	}
	seen := make(map[string]bool, len(r.Bands))
	sorted := r.sortedBands()
	for i, b := range sorted {
		if b.Label == "" {
			return fmt.Errorf("band label is required")
		}
		if seen[b.Label] {
			return fmt.Errorf("duplicate band label %q", b.Label)
		}
		seen[b.Label] = true
		if b.Min > b.Max {
			return fmt.Errorf("band %s: min %d exceeds max %d", b.Label, b.Min, b.Max)
		}
		if i > 0 && b.Min <= sorted[i-1].Max {
			return fmt.Errorf("band %s overlaps band %s", b.Label, sorted[i-1].Label)
		}
	}
	if r.CapMin > r.CapMax {
		return fmt.Errorf("cap range min %d exceeds max %d", r.CapMin, r.CapMax)
	}
	if r.CapMax >= sorted[0].Min {
		return fmt.Errorf("cap range must lie below band %s", sorted[0].Label)
	}
	return nil
}

// Floor is the price at or above which a purchase counts towards the cap
func (r Rules) Floor() int64 {
	if r.QualifyingFloor > 0 {
		return r.QualifyingFloor
	}
	lowest := r.sortedBands()
	if len(lowest) == 0 {
		return 0
	}
	return lowest[0].Min
}

// BandFor returns the band containing price
func (r Rules) BandFor(price int64) (Band, bool) {
	for _, b := range r.Bands {
		if b.Contains(price) {
			return b, true
		}
	}
	return Band{}, false
}

// LabelFor derives the tier label for a direct sale, empty outside every band
func (r Rules) LabelFor(price int64) string {
	b, ok := r.BandFor(price)
	if !ok {
		return ""
	}
	return b.Label
}

// sortedBands returns the bands ordered by ascending Min
func (r Rules) sortedBands() []Band {
	out := make([]Band, len(r.Bands))
	copy(out, r.Bands)
	sort.Slice(out, func(i, j int) bool { return out[i].Min < out[j].Min })
	return out
}
