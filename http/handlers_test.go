package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/discovery-api/internal/auth"
	"github.com/yourorg/discovery-api/internal/cache"
	"github.com/yourorg/discovery-api/internal/catalog"
	"github.com/yourorg/discovery-api/internal/events"
	"github.com/yourorg/discovery-api/internal/geoip"
	"github.com/yourorg/discovery-api/internal/nearby"
	"github.com/yourorg/discovery-api/internal/ranking"
	"github.com/yourorg/discovery-api/internal/recommend"
	"github.com/yourorg/discovery-api/internal/visits"
)

const testSecret = "test-secret"

// fakeStore backs every engine in these tests with a small fixed catalog.
type fakeStore struct {
	items map[string]catalog.CandidateItem

	mu       sync.Mutex
	profiles map[string]*catalog.Profile
}

func newFakeStore() *fakeStore {
	f := &fakeStore{
		items:    map[string]catalog.CandidateItem{},
		profiles: map[string]*catalog.Profile{},
	}
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("prop-%02d", i)
		f.items[id] = catalog.CandidateItem{
			ID: id, Kind: catalog.KindProperty, Title: "Listing " + id,
			Category: "apartment", City: "Delhi", Available: true,
			Price:       catalog.Price{PerMonth: float64(10000 + i*500)},
			Coordinates: catalog.Coordinates{Lat: 28.6 + float64(i)*0.001, Lng: 77.2, Set: true},
		}
	}
	return f
}

func (f *fakeStore) FindByIDs(_ context.Context, kind catalog.Kind, ids []string) ([]catalog.CandidateItem, error) {
	var out []catalog.CandidateItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok && item.Kind == kind {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) FindRandom(_ context.Context, kind catalog.Kind, category string, exclude []string, limit int) ([]catalog.CandidateItem, error) {
	skip := map[string]struct{}{}
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var out []catalog.CandidateItem
	for _, item := range f.items {
		if len(out) == limit {
			break
		}
		if item.Kind != kind || !item.MatchesCategory(category) {
			continue
		}
		if _, ok := skip[item.ID]; ok {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeStore) TextSearch(_ context.Context, kind catalog.Kind, _ string, _ []string, limit int) ([]catalog.CandidateItem, error) {
	var out []catalog.CandidateItem
	for _, item := range f.items {
		if len(out) == limit {
			break
		}
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) CountMatching(_ context.Context, kind catalog.Kind, _ string, _ []string) (int, error) {
	n := 0
	for _, item := range f.items {
		if item.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindNear(_ context.Context, kind catalog.Kind, _, _, _ float64, limit int) ([]catalog.CandidateItem, error) {
	var out []catalog.CandidateItem
	for _, item := range f.items {
		if len(out) == limit {
			break
		}
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) Profile(_ context.Context, userID string) (*catalog.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown user %s", userID)
}

func (f *fakeStore) RecordVisit(_ context.Context, userID string, kind catalog.Kind, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		p = &catalog.Profile{UserID: userID}
		f.profiles[userID] = p
	}
	p.Visited = catalog.PushVisit(p.Visited, kind, itemID, time.Now())
	return nil
}

type fakeGeo struct{}

func (fakeGeo) Lookup(context.Context, string) (*geoip.Position, error) {
	return &geoip.Position{Lat: 28.6139, Lon: 77.2090, City: "New Delhi", IP: "203.0.113.4"}, nil
}

func testRouter(t *testing.T) (http.Handler, *fakeStore) {
	t.Helper()
	st := newFakeStore()

	mem := cache.NewMemory(time.Minute)
	t.Cleanup(mem.Close)

	verifier := auth.NewVerifier(testSecret)
	recEngine := recommend.NewEngine(st, st, mem, time.Minute, zerolog.Nop())
	searchEngine := ranking.NewEngine(st, 1000, zerolog.Nop())
	locator := nearby.NewLocator(st, fakeGeo{}, nearby.Config{PropertyLimit: 10, VehicleLimit: 50, DefaultRadiusKm: 10}, zerolog.Nop())
	recorder := visits.NewRecorder(8, 1, st, events.NewInMemory(8), zerolog.Nop())

	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(verifier.Middleware)
	RegisterRecommend(r, RecommendDeps{Engine: recEngine})
	RegisterSearch(r, SearchDeps{Engine: searchEngine, Profiles: st})
	RegisterNearby(r, NearbyDeps{Locator: locator})
	RegisterVisited(r, VisitedDeps{Recorder: recorder})
	return r, st
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func doJSON(t *testing.T, h http.Handler, method, target, authHeader string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRecommendedEndpoint(t *testing.T) {
	h, _ := testRouter(t)

	code, body := doJSON(t, h, "GET", "/recommended/properties?category=all", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["cached"])
	results := body["results"].([]any)
	assert.LessOrEqual(t, len(results), 20)
	assert.NotEmpty(t, results)

	code, body = doJSON(t, h, "GET", "/recommended/properties?category=all", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["cached"], "second call within the TTL must be served from cache")
}

func TestRecommendedRejectsUnknownKind(t *testing.T) {
	h, _ := testRouter(t)
	code, body := doJSON(t, h, "GET", "/recommended/boats", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
}

func TestRecommendedCacheClearRequiresAuth(t *testing.T) {
	h, _ := testRouter(t)

	code, _ := doJSON(t, h, "DELETE", "/recommended/cache", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := doJSON(t, h, "DELETE", "/recommended/cache", bearer(t, "u1"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
}

func TestSearchPaginatedEndpoint(t *testing.T) {
	h, _ := testRouter(t)

	code, body := doJSON(t, h, "GET", "/search/paginated?type=property&page=1&limit=5&sort=price_asc", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	results := data["results"].([]any)
	assert.Len(t, results, 5)

	pagination := data["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["page"])
	assert.Equal(t, float64(25), pagination["total"])
	assert.Equal(t, true, pagination["hasMore"])
	assert.Equal(t, float64(5), pagination["totalPages"])
	assert.Equal(t, "price_asc", pagination["sort"])
}

func TestSearchPaginatedRejectsBadType(t *testing.T) {
	h, _ := testRouter(t)
	code, _ := doJSON(t, h, "GET", "/search/paginated?type=castle", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSearchPaginatedRejectsBadCoordinates(t *testing.T) {
	h, _ := testRouter(t)
	code, _ := doJSON(t, h, "GET", "/search/paginated?type=property&lat=91&lng=0", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestNearbyCoordinatesExplicit(t *testing.T) {
	h, _ := testRouter(t)

	code, body := doJSON(t, h, "GET", "/nearby/coordinates?latitude=28.6139&longitude=77.2090", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "query", data["source"])
	assert.Equal(t, 28.6139, data["latitude"])
}

func TestNearbyCoordinatesRejectsOutOfRange(t *testing.T) {
	h, _ := testRouter(t)
	code, _ := doJSON(t, h, "GET", "/nearby/coordinates?latitude=91&longitude=10", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestNearbyCoordinatesIPFallback(t *testing.T) {
	h, _ := testRouter(t)

	code, body := doJSON(t, h, "GET", "/nearby/coordinates", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ip", data["source"])
	assert.Equal(t, "New Delhi", data["city"])
}

func TestNearbyEndpoint(t *testing.T) {
	h, _ := testRouter(t)

	code, body := doJSON(t, h, "GET", "/nearby?latitude=28.6139&longitude=77.2090&type=all", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	props := data["properties"].([]any)
	assert.LessOrEqual(t, len(props), 10)
	assert.Equal(t, float64(len(props)), data["total"].(float64)-float64(len(data["vehicles"].([]any))))
}

func TestNearbyRejectsUnknownType(t *testing.T) {
	h, _ := testRouter(t)
	code, body := doJSON(t, h, "GET", "/nearby?latitude=28.6&longitude=77.2&type=boats", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
}

func TestVisitedEndpoint(t *testing.T) {
	h, st := testRouter(t)

	code, _ := doJSON(t, h, "POST", "/visited/properties/prop-01", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := doJSON(t, h, "POST", "/visited/properties/prop-01", bearer(t, "u1"))
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, true, body["success"])

	require.Eventually(t, func() bool {
		p, err := st.Profile(context.Background(), "u1")
		return err == nil && len(p.Visited) == 1 && p.Visited[0].ItemID == "prop-01"
	}, 2*time.Second, 5*time.Millisecond, "the async recorder must persist the visit")

	code, _ = doJSON(t, h, "POST", "/visited/boats/x", bearer(t, "u1"))
	assert.Equal(t, http.StatusNotFound, code)
}
