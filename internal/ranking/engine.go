package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yourorg/discovery-api/internal/catalog"
	"github.com/yourorg/discovery-api/internal/geo"
	"github.com/yourorg/discovery-api/internal/metrics"
)

// SortMode selects the ranking order for search results.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortRating    SortMode = "rating"
	SortNearest   SortMode = "nearest"
)

// ParseSort maps unknown values to relevance rather than erroring.
func ParseSort(s string) SortMode {
	switch SortMode(s) {
	case SortPriceAsc, SortPriceDesc, SortRating, SortNearest:
		return SortMode(s)
	default:
		return SortRelevance
	}
}

// Repository is the candidate-store slice ranked search needs.
type Repository interface {
	TextSearch(ctx context.Context, kind catalog.Kind, query string, exclude []string, limit int) ([]catalog.CandidateItem, error)
	CountMatching(ctx context.Context, kind catalog.Kind, query string, exclude []string) (int, error)
}

// UserContext carries the personalization signals resolved from an optional
// auth token. The zero value means an unpersonalized search.
type UserContext struct {
	FavoriteIDs []string
	BookedIDs   []string
	HomeCity    string
}

// Origin is the caller's location for distance annotation and nearest sort.
type Origin struct {
	Lat, Lng float64
	Set      bool
}

// Params describes one search call. Page is 1-based.
type Params struct {
	Kind       catalog.Kind
	Query      string
	Page       int
	PageSize   int
	ExcludeIDs []string
	Sort       SortMode
	User       UserContext
	Origin     Origin
}

// Page is one slice of the ranked result set. Total and TotalPages always
// reflect the full matching count, but HasMore refers to the ranked window:
// when the candidate fetch clips at the engine's bound, HasMore goes false
// once the ranked set is exhausted even though Total is larger, so pagination
// never promises pages the engine will not rank.
type Page struct {
	Results    []catalog.SearchResult
	Total      int
	PageNum    int
	PageSize   int
	HasMore    bool
	TotalPages int
	Sort       SortMode
}

// scored pairs a candidate with its ephemeral ranking attributes.
type scored struct {
	item       catalog.CandidateItem
	score      float64
	price      float64
	priced     bool
	rating     float64
	distanceKm *float64
}

// Engine scores, sorts and paginates search candidates fetched from the
// store in one bounded pass.
type Engine struct {
	repo          Repository
	maxCandidates int
	log           zerolog.Logger
}

func NewEngine(repo Repository, maxCandidates int, log zerolog.Logger) *Engine {
	if maxCandidates <= 0 {
		maxCandidates = 5000
	}
	return &Engine{
		repo:          repo,
		maxCandidates: maxCandidates,
		log:           log.With().Str("component", "ranking").Logger(),
	}
}

// Search runs the full fetch -> score -> sort -> paginate pipeline. The
// candidate set is clipped at maxCandidates to bound worst-case latency;
// Total still reports the full matching count.
func (e *Engine) Search(ctx context.Context, p Params) (*Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.Sort == "" {
		p.Sort = SortRelevance
	}
	metrics.SearchRequests.WithLabelValues(string(p.Sort)).Inc()

	candidates, err := e.repo.TextSearch(ctx, p.Kind, p.Query, p.ExcludeIDs, e.maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("search fetch: %w", err)
	}
	total, err := e.repo.CountMatching(ctx, p.Kind, p.Query, p.ExcludeIDs)
	if err != nil {
		return nil, fmt.Errorf("search count: %w", err)
	}

	ranked := e.rank(candidates, p)

	offset := (p.Page - 1) * p.PageSize
	var window []scored
	if offset < len(ranked) {
		end := offset + p.PageSize
		if end > len(ranked) {
			end = len(ranked)
		}
		window = ranked[offset:end]
	}

	results := make([]catalog.SearchResult, 0, len(window))
	for i := range window {
		results = append(results, catalog.ToSearchResult(&window[i].item, window[i].distanceKm))
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return &Page{
		Results:    results,
		Total:      total,
		PageNum:    p.Page,
		PageSize:   p.PageSize,
		HasMore:    offset+len(results) < len(ranked),
		TotalPages: totalPages,
		Sort:       p.Sort,
	}, nil
}

func (e *Engine) rank(items []catalog.CandidateItem, p Params) []scored {
	favs := toSet(p.User.FavoriteIDs)
	booked := toSet(p.User.BookedIDs)

	out := make([]scored, 0, len(items))
	for i := range items {
		item := items[i]
		s := scored{item: item}
		s.price, s.priced = catalog.ResolvePrice(&item)
		s.rating, _ = catalog.ResolveRating(&item)
		if p.Origin.Set && item.Coordinates.Set {
			d := geo.RoundKm(geo.HaversineKm(p.Origin.Lat, p.Origin.Lng, item.Coordinates.Lat, item.Coordinates.Lng))
			s.distanceKm = &d
		}
		if p.Sort == SortRelevance {
			s.score = relevanceScore(&item, booked, favs, p.User.HomeCity)
		}
		out = append(out, s)
	}

	switch p.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool {
			return priceKey(out[i]) < priceKey(out[j])
		})
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return priceKeyDesc(out[i]) > priceKeyDesc(out[j])
		})
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].rating > out[j].rating
		})
	case SortNearest:
		sort.SliceStable(out, func(i, j int) bool {
			return distanceKey(out[i]) < distanceKey(out[j])
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].score > out[j].score
		})
	}
	return out
}

// relevanceScore weighs the personalization signals; the random component
// breaks ties so equally-scored items rotate between calls.
func relevanceScore(item *catalog.CandidateItem, booked, favs map[string]struct{}, homeCity string) float64 {
	score := 0.0
	if _, ok := booked[item.ID]; ok {
		score += 1000
	}
	if _, ok := favs[item.ID]; ok {
		score += 500
	}
	if homeCity != "" && strings.EqualFold(item.City, homeCity) {
		score += 100
	}
	if item.Featured {
		score += 50
	}
	return score + rand.Float64()*10
}

// priceKey sorts unpriced items after every priced one in ascending mode.
func priceKey(s scored) float64 {
	if !s.priced {
		return math.Inf(1)
	}
	return s.price
}

// priceKeyDesc sorts unpriced items last in descending mode too.
func priceKeyDesc(s scored) float64 {
	if !s.priced {
		return math.Inf(-1)
	}
	return s.price
}

func distanceKey(s scored) float64 {
	if s.distanceKm == nil {
		return math.Inf(1)
	}
	return *s.distanceKm
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
