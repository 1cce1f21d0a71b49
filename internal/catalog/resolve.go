package catalog

import "strings"

func equalFold(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }

// ResolvePrice picks the display price for an item. Properties prefer the
// monthly rate, vehicles the daily one; the chain falls through to whatever
// the owner did set. ok=false means no amount is set at all; callers must
// not treat that as a free item.
func ResolvePrice(item *CandidateItem) (amount float64, ok bool) {
	var chain []float64
	switch item.Kind {
	case KindVehicle:
		chain = []float64{item.Price.PerDay, item.Price.PerHour, item.Price.PerWeek, item.Price.PerMonth}
	default:
		chain = []float64{item.Price.PerMonth, item.Price.PerWeek, item.Price.PerDay}
	}
	for _, v := range chain {
		if v > 0 {
			return v, true
		}
	}
	return 0, false
}

// ResolveRating returns the average rating, 0 when the item has no reviews.
func ResolveRating(item *CandidateItem) (avg float64, count int) {
	if item.Rating.Count <= 0 {
		return 0, 0
	}
	return item.Rating.Avg, item.Rating.Count
}
