package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpapi "github.com/yourorg/discovery-api/http"
	"github.com/yourorg/discovery-api/internal/auth"
	"github.com/yourorg/discovery-api/internal/logger"
	"github.com/yourorg/discovery-api/internal/nearby"
	"github.com/yourorg/discovery-api/internal/ranking"
	"github.com/yourorg/discovery-api/internal/recommend"
	"github.com/yourorg/discovery-api/internal/visits"
)

type RouterDeps struct {
	Recommend *recommend.Engine
	Search    *ranking.Engine
	Locator   *nearby.Locator
	Recorder  *visits.Recorder
	Profiles  recommend.ProfileSource
	Verifier  *auth.Verifier
	Log       zerolog.Logger
}

func BuildRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.Middleware(deps.Log))
	r.Use(httprate.LimitByIP(100, 1*time.Minute))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(deps.Verifier.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })
	r.Handle("/metrics", promhttp.Handler())

	httpapi.RegisterRecommend(r, httpapi.RecommendDeps{Engine: deps.Recommend})
	httpapi.RegisterSearch(r, httpapi.SearchDeps{Engine: deps.Search, Profiles: deps.Profiles})
	httpapi.RegisterNearby(r, httpapi.NearbyDeps{Locator: deps.Locator})
	httpapi.RegisterVisited(r, httpapi.VisitedDeps{Recorder: deps.Recorder})

	return r
}
