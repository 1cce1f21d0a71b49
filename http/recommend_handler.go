package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/discovery-api/internal/auth"
	"github.com/yourorg/discovery-api/internal/catalog"
	"github.com/yourorg/discovery-api/internal/recommend"
)

type RecommendDeps struct {
	Engine *recommend.Engine
}

func RegisterRecommend(r chi.Router, d RecommendDeps) {
	r.Get("/recommended/{kind}", func(w http.ResponseWriter, req *http.Request) {
		kind, ok := catalog.ParseKind(chi.URLParam(req, "kind"))
		if !ok {
			fail(w, req, http.StatusBadRequest, "type must be properties or vehicles")
			return
		}
		category := req.URL.Query().Get("category")
		userID := auth.UserIDFromContext(req.Context())

		res, err := d.Engine.Recommend(req.Context(), userID, kind, category)
		if err != nil {
			fail(w, req, http.StatusInternalServerError, "recommendations unavailable")
			return
		}

		body := map[string]any{
			"success": true,
			"results": catalog.ToSearchResults(res.Items),
			"total":   len(res.Items),
			"cached":  res.Cached,
		}
		if res.Fallback {
			body["fallback"] = true
		}
		render.JSON(w, req, body)
	})

	r.Delete("/recommended/cache", func(w http.ResponseWriter, req *http.Request) {
		userID := auth.UserIDFromContext(req.Context())
		if userID == "" {
			fail(w, req, http.StatusUnauthorized, "authentication required")
			return
		}
		n, err := d.Engine.InvalidateUser(req.Context(), userID)
		if err != nil {
			fail(w, req, http.StatusInternalServerError, "cache invalidation failed")
			return
		}
		render.JSON(w, req, map[string]any{
			"success": true,
			"message": fmt.Sprintf("cleared %d cached entries", n),
		})
	})
}
