package catalog

import "time"

// Kind discriminates the two rentable item families.
type Kind string

const (
	KindProperty Kind = "property"
	KindVehicle  Kind = "vehicle"
)

// ParseKind accepts the singular and plural spellings used across the API
// surface ("property", "properties", "vehicle", "vehicles").
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "property", "properties":
		return KindProperty, true
	case "vehicle", "vehicles":
		return KindVehicle, true
	}
	return "", false
}

// CategoryAll matches every category in recommendation and search filters.
const CategoryAll = "all"

// Rating aggregates review scores for an item.
type Rating struct {
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// Price holds the per-period amounts an owner may have set. Zero means the
// owner did not set that period; resolution picks the first set amount in a
// kind-specific order.
type Price struct {
	PerMonth float64 `json:"perMonth,omitempty"`
	PerWeek  float64 `json:"perWeek,omitempty"`
	PerDay   float64 `json:"perDay,omitempty"`
	PerHour  float64 `json:"perHour,omitempty"`
}

// Coordinates is a WGS84 point. Valid reports whether the item actually has
// a location; items without one are stored as (0,0) with Set=false.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Set bool    `json:"-"`
}

// CandidateItem is the typed shape the discovery core scores and ranks.
// It is a tagged union over properties and vehicles: shared fields are
// always populated, kind-specific ones only for the matching Kind.
type CandidateItem struct {
	ID          string      `json:"id"`
	Kind        Kind        `json:"kind"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	Price       Price       `json:"price"`
	Rating      Rating      `json:"rating"`
	Featured    bool        `json:"featured"`
	Available   bool        `json:"available"`
	Images      []string    `json:"images"`
	CreatedAt   time.Time   `json:"createdAt"`

	// Property-only
	Bedrooms  int `json:"bedrooms,omitempty"`
	Bathrooms int `json:"bathrooms,omitempty"`
	AreaSqft  int `json:"areaSqft,omitempty"`

	// Vehicle-only
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
	Seats int    `json:"seats,omitempty"`
}

// VisitedEntry is one slot in a user's capped recently-visited list.
type VisitedEntry struct {
	ItemID    string    `json:"itemId"`
	Kind      Kind      `json:"kind"`
	VisitedAt time.Time `json:"visitedAt"`
}

// VisitedCapacity bounds the recently-visited list; recording a visit past
// the cap evicts the oldest entry.
const VisitedCapacity = 20

// PushVisit reinserts a visit at the front of a most-recent-first list,
// dropping any earlier entry for the same item and trimming past
// VisitedCapacity. The visit store enforces the same rule in SQL; this is
// its in-memory form.
func PushVisit(list []VisitedEntry, kind Kind, itemID string, at time.Time) []VisitedEntry {
	out := make([]VisitedEntry, 0, len(list)+1)
	out = append(out, VisitedEntry{ItemID: itemID, Kind: kind, VisitedAt: at})
	for _, v := range list {
		if v.Kind == kind && v.ItemID == itemID {
			continue
		}
		out = append(out, v)
	}
	if len(out) > VisitedCapacity {
		out = out[:VisitedCapacity]
	}
	return out
}

// Profile is the slice of a user record the discovery core reads.
type Profile struct {
	UserID             string
	FavoritePropertyID []string
	FavoriteVehicleID  []string
	BookedIDs          []string
	HomeCity           string
	Visited            []VisitedEntry // most recent first, len <= VisitedCapacity
}

// FavoriteIDs returns the favorite set for one kind.
func (p *Profile) FavoriteIDs(kind Kind) []string {
	if kind == KindVehicle {
		return p.FavoriteVehicleID
	}
	return p.FavoritePropertyID
}

// MatchesCategory applies the category filter; "all" and empty match
// everything, otherwise a case-insensitive equality on the item category.
func (i *CandidateItem) MatchesCategory(category string) bool {
	if category == "" || category == CategoryAll {
		return true
	}
	return equalFold(i.Category, category)
}
