package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/discovery-api/internal/auth"
	"github.com/yourorg/discovery-api/internal/catalog"
	"github.com/yourorg/discovery-api/internal/geo"
	"github.com/yourorg/discovery-api/internal/ranking"
	"github.com/yourorg/discovery-api/internal/recommend"
)

type SearchDeps struct {
	Engine   *ranking.Engine
	Profiles recommend.ProfileSource
}

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

func RegisterSearch(r chi.Router, d SearchDeps) {
	r.Get("/search/paginated", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()

		kind, ok := catalog.ParseKind(q.Get("type"))
		if !ok {
			fail(w, req, http.StatusBadRequest, "type must be property or vehicle")
			return
		}

		page := queryInt(req, "page", 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(req, "limit", defaultPageSize)
		if limit < 1 {
			limit = defaultPageSize
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}

		var exclude []string
		if raw := q.Get("exclude"); raw != "" {
			for _, id := range strings.Split(raw, ",") {
				if id = strings.TrimSpace(id); id != "" {
					exclude = append(exclude, id)
				}
			}
		}

		lat, okLat := queryFloat(req, "lat")
		lng, okLng := queryFloat(req, "lng")
		if !okLat || !okLng {
			fail(w, req, http.StatusBadRequest, "lat and lng must be numeric")
			return
		}
		var origin ranking.Origin
		if lat != nil && lng != nil {
			if !geo.ValidCoordinates(*lat, *lng) {
				fail(w, req, http.StatusBadRequest, "latitude must be in [-90,90] and longitude in [-180,180]")
				return
			}
			origin = ranking.Origin{Lat: *lat, Lng: *lng, Set: true}
		}

		params := ranking.Params{
			Kind:       kind,
			Query:      q.Get("query"),
			Page:       page,
			PageSize:   limit,
			ExcludeIDs: exclude,
			Sort:       ranking.ParseSort(q.Get("sort")),
			Origin:     origin,
			User:       resolveUserContext(req.Context(), d.Profiles, kind),
		}

		result, err := d.Engine.Search(req.Context(), params)
		if err != nil {
			fail(w, req, http.StatusInternalServerError, "search unavailable")
			return
		}

		render.JSON(w, req, map[string]any{
			"success": true,
			"data": map[string]any{
				"results": result.Results,
				"pagination": map[string]any{
					"page":       result.PageNum,
					"limit":      result.PageSize,
					"total":      result.Total,
					"hasMore":    result.HasMore,
					"totalPages": result.TotalPages,
					"sort":       result.Sort,
				},
			},
		})
	})
}

// resolveUserContext turns an optional authenticated identity into scoring
// signals. Any failure here degrades to an unpersonalized search.
func resolveUserContext(ctx context.Context, profiles recommend.ProfileSource, kind catalog.Kind) ranking.UserContext {
	userID := auth.UserIDFromContext(ctx)
	if userID == "" || profiles == nil {
		return ranking.UserContext{}
	}
	p, err := profiles.Profile(ctx, userID)
	if err != nil {
		return ranking.UserContext{}
	}
	return ranking.UserContext{
		FavoriteIDs: p.FavoriteIDs(kind),
		BookedIDs:   p.BookedIDs,
		HomeCity:    p.HomeCity,
	}
}
