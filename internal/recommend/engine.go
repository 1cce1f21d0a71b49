package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/yourorg/discovery-api/internal/cache"
	"github.com/yourorg/discovery-api/internal/catalog"
	"github.com/yourorg/discovery-api/internal/events"
	"github.com/yourorg/discovery-api/internal/metrics"
)

// Repository is the candidate-store slice the cascade needs.
type Repository interface {
	FindByIDs(ctx context.Context, kind catalog.Kind, ids []string) ([]catalog.CandidateItem, error)
	FindRandom(ctx context.Context, kind catalog.Kind, category string, exclude []string, limit int) ([]catalog.CandidateItem, error)
}

// ProfileSource loads user favorites and visit history.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*catalog.Profile, error)
}

const (
	quotaAll      = 20
	quotaCategory = 10
)

// Result is one recommendation response.
type Result struct {
	Items    []catalog.CandidateItem
	Cached   bool
	Fallback bool
}

type cachedPayload struct {
	Items    []catalog.CandidateItem `json:"items"`
	Fallback bool                    `json:"fallback"`
}

// Engine composes the favorites -> visited -> random-fill cascade behind a
// TTL cache with per-key singleflight.
type Engine struct {
	repo     Repository
	profiles ProfileSource
	cache    cache.Cache
	flight   cache.Keyed
	ttl      time.Duration
	log      zerolog.Logger
}

func NewEngine(repo Repository, profiles ProfileSource, c cache.Cache, ttl time.Duration, log zerolog.Logger) *Engine {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Engine{
		repo:     repo,
		profiles: profiles,
		cache:    c,
		ttl:      ttl,
		log:      log.With().Str("component", "recommend").Logger(),
	}
}

// Recommend returns up to 20 items for category "all", 10 otherwise, with no
// duplicate ids. Unknown or anonymous users get random fill only. Cascade
// failures degrade to random items with Fallback=true; only a random fill
// that itself fails propagates.
func (e *Engine) Recommend(ctx context.Context, userID string, kind catalog.Kind, category string) (*Result, error) {
	if category == "" {
		category = catalog.CategoryAll
	}

	key := cache.RecommendKey(userID, string(kind), category)
	if raw, ok := e.cache.Get(ctx, key); ok {
		var p cachedPayload
		if err := json.Unmarshal(raw, &p); err == nil {
			metrics.CacheHits.Inc()
			return &Result{Items: p.Items, Cached: true, Fallback: p.Fallback}, nil
		}
		_ = e.cache.Invalidate(ctx, key)
	}
	metrics.CacheMisses.Inc()

	raw, _, err := e.flight.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		res, err := e.compute(ctx, userID, kind, category)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(cachedPayload{Items: res.Items, Fallback: res.Fallback})
		if err != nil {
			return nil, err
		}
		// fallback responses are transient; caching them would pin bad luck
		// for a full TTL window
		if !res.Fallback {
			if err := e.cache.Set(ctx, key, b, e.ttl); err != nil {
				e.log.Warn().Err(err).Str("key", key).Msg("cache store failed")
			}
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	var p cachedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &Result{Items: p.Items, Fallback: p.Fallback}, nil
}

func (e *Engine) compute(ctx context.Context, userID string, kind catalog.Kind, category string) (*Result, error) {
	collected, err := e.cascade(ctx, userID, kind, category)
	if err == nil {
		return &Result{Items: collected}, nil
	}

	e.log.Warn().Err(err).Str("user", userID).Str("kind", string(kind)).Msg("cascade failed, degrading to random fill")
	metrics.RecommendFallbacks.Inc()

	items, rErr := e.repo.FindRandom(ctx, kind, category, nil, quotaAll)
	if rErr != nil {
		return nil, fmt.Errorf("recommend: store unreachable: %w", rErr)
	}
	return &Result{Items: truncate(items, category), Fallback: true}, nil
}

func (e *Engine) cascade(ctx context.Context, userID string, kind catalog.Kind, category string) ([]catalog.CandidateItem, error) {
	consumed := newTracker()
	var collected []catalog.CandidateItem

	profile := e.loadProfile(ctx, userID)

	// Stage A: favorites, featured first, stable within each group.
	if fav := profile.FavoriteIDs(kind); len(fav) > 0 {
		items, err := e.repo.FindByIDs(ctx, kind, fav)
		if err != nil {
			return nil, fmt.Errorf("favorites stage: %w", err)
		}
		ordered := orderByIDs(items, fav)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Featured && !ordered[j].Featured
		})
		for i := range ordered {
			if consumed.Add(ordered[i].ID) {
				collected = append(collected, ordered[i])
			}
		}
	}

	// Stage B: visit history in recency order; stale references (the record
	// was deleted since the visit) are skipped.
	if len(collected) < quotaAll && len(profile.Visited) > 0 {
		var ids []string
		for _, v := range profile.Visited {
			if v.Kind == kind {
				ids = append(ids, v.ItemID)
			}
		}
		if len(ids) > 0 {
			items, err := e.repo.FindByIDs(ctx, kind, ids)
			if err != nil {
				return nil, fmt.Errorf("visited stage: %w", err)
			}
			byID := make(map[string]catalog.CandidateItem, len(items))
			for i := range items {
				byID[items[i].ID] = items[i]
			}
			for _, id := range ids {
				if len(collected) >= quotaAll {
					break
				}
				item, exists := byID[id]
				if !exists {
					continue
				}
				if consumed.Add(id) {
					collected = append(collected, item)
				}
			}
		}
	}

	// Stage C: random fill up to the quota.
	if missing := quotaAll - len(collected); missing > 0 {
		items, err := e.repo.FindRandom(ctx, kind, category, consumed.IDs(), missing)
		if err != nil {
			return nil, fmt.Errorf("random fill stage: %w", err)
		}
		for i := range items {
			if consumed.Add(items[i].ID) {
				collected = append(collected, items[i])
			}
		}
	}

	return truncate(collected, category), nil
}

// loadProfile tolerates lookup failure: an unknown or unloadable user just
// means the personalized stages contribute nothing.
func (e *Engine) loadProfile(ctx context.Context, userID string) *catalog.Profile {
	if userID == "" {
		return &catalog.Profile{}
	}
	p, err := e.profiles.Profile(ctx, userID)
	if err != nil {
		e.log.Debug().Err(err).Str("user", userID).Msg("profile unavailable, proceeding anonymous")
		return &catalog.Profile{}
	}
	return p
}

// truncate re-applies the category filter (favorites and visits ignore it)
// and clips to the per-mode cap.
func truncate(items []catalog.CandidateItem, category string) []catalog.CandidateItem {
	capN := quotaCategory
	if category == "" || category == catalog.CategoryAll {
		capN = quotaAll
	}
	out := make([]catalog.CandidateItem, 0, capN)
	for i := range items {
		if !items[i].MatchesCategory(category) {
			continue
		}
		out = append(out, items[i])
		if len(out) == capN {
			break
		}
	}
	return out
}

func orderByIDs(items []catalog.CandidateItem, ids []string) []catalog.CandidateItem {
	byID := make(map[string]catalog.CandidateItem, len(items))
	for i := range items {
		byID[items[i].ID] = items[i]
	}
	out := make([]catalog.CandidateItem, 0, len(items))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out
}

// InvalidateUser drops every cached recommendation slice for one user.
func (e *Engine) InvalidateUser(ctx context.Context, userID string) (int, error) {
	return e.cache.InvalidatePrefix(ctx, cache.UserPrefix(userID))
}

// ConsumeVisits invalidates a user's cache whenever they view an item, so
// the visited stage reflects it after the current TTL-free window.
func (e *Engine) ConsumeVisits(ctx context.Context, sub <-chan events.ItemVisited) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			if _, err := e.InvalidateUser(ctx, evt.UserID); err != nil {
				e.log.Warn().Err(err).Str("user", evt.UserID).Msg("visit invalidation failed")
			}
		}
	}
}
