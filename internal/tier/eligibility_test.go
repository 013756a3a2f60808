package tier

import (
	"testing"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func sold(id int64, price int64, method models.Method) models.Item {
	it := models.Item{ID: id, Name: "item"}
	it.Allocate(1, price, method, "")
	return it
}

func TestAllowedBid(t *testing.T) {
	rules := DefaultRules()
	assert.NoError(t, rules.Validate())

	t.Run("fresh bidder may buy in any band", func(t *testing.T) {
		s := Summarize(rules, nil, 0)
		for _, price := range []int64{160, 130, 110, 50, 100} {
			check.Equal(t, Eligible, AllowedBid(rules, s, price).Outcome)
		}
	})

	t.Run("one purchase per band", func(t *testing.T) {
		s := Summarize(rules, []models.Item{sold(1, 180, models.MethodDirect)}, 0)
		d := AllowedBid(rules, s, 151)
		check.Equal(t, RejectedBandFull, d.Outcome)
		check.Equal(t, "A", d.Band)
		check.Equal(t, Eligible, AllowedBid(rules, s, 150).Outcome)
		check.Equal(t, models.KindEligibility, models.KindOf(d.Err(rules)))
	})

	t.Run("cap restricts to low range once all bands covered", func(t *testing.T) {
		history := []models.Item{
			sold(1, 160, models.MethodDirect),
			sold(2, 130, models.MethodDirect),
			sold(3, 110, models.MethodDirect),
		}
		s := Summarize(rules, history, 0)
		check.True(t, s.CapReached)
		check.Equal(t, 3, s.Qualifying)
		check.Equal(t, RejectedCapReached, AllowedBid(rules, s, 140).Outcome)
		check.Equal(t, Eligible, AllowedBid(rules, s, 50).Outcome)
		check.Equal(t, Eligible, AllowedBid(rules, s, 10).Outcome)
		check.Equal(t, Eligible, AllowedBid(rules, s, 100).Outcome)
		check.Equal(t, RejectedCapReached, AllowedBid(rules, s, 9).Outcome)
		check.Equal(t, RejectedCapReached, AllowedBid(rules, s, 101).Outcome)
		check.Equal(t, 0, len(OpenBands(rules, s)))
	})

	t.Run("bundle and lot purchases do not count", func(t *testing.T) {
		history := []models.Item{
			sold(1, 160, models.MethodBundle),
			sold(2, 0, models.MethodLot),
		}
		s := Summarize(rules, history, 0)
		check.Equal(t, 0, s.BandCounts["A"])
		check.Equal(t, Eligible, AllowedBid(rules, s, 170).Outcome)
		check.Equal(t, 3, len(OpenBands(rules, s)))
	})

	t.Run("edit excludes the item's own contribution", func(t *testing.T) {
		history := []models.Item{sold(7, 180, models.MethodDirect)}
		check.Equal(t, RejectedBandFull, AllowedBid(rules, Summarize(rules, history, 0), 190).Outcome)
		check.Equal(t, Eligible, AllowedBid(rules, Summarize(rules, history, 7), 190).Outcome)
	})

	t.Run("legacy method none counts as direct", func(t *testing.T) {
		s := Summarize(rules, []models.Item{sold(1, 125, models.MethodNone)}, 0)
		check.Equal(t, 1, s.BandCounts["B"])
	})
}

func TestRules(t *testing.T) {
	rules := DefaultRules()
	check.Equal(t, "A", rules.LabelFor(175))
	check.Equal(t, "C", rules.LabelFor(101))
	check.Equal(t, "", rules.LabelFor(90))
	check.Equal(t, int64(101), rules.Floor())

	rules.QualifyingFloor = 100
	check.Equal(t, int64(100), rules.Floor())

	overlap := DefaultRules()
	overlap.Bands[1].Max = 160
	check.Error(t, overlap.Validate())

	badCap := DefaultRules()
	badCap.CapMax = 101
	check.Error(t, badCap.Validate())
}
