package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/discovery-api/internal/auth"
	cachepkg "github.com/yourorg/discovery-api/internal/cache"
	"github.com/yourorg/discovery-api/internal/config"
	"github.com/yourorg/discovery-api/internal/events"
	"github.com/yourorg/discovery-api/internal/geoip"
	"github.com/yourorg/discovery-api/internal/logger"
	"github.com/yourorg/discovery-api/internal/nearby"
	"github.com/yourorg/discovery-api/internal/ranking"
	"github.com/yourorg/discovery-api/internal/recommend"
	"github.com/yourorg/discovery-api/internal/redisx"
	"github.com/yourorg/discovery-api/internal/store"
	"github.com/yourorg/discovery-api/internal/visits"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}
	defer st.DB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("postgres unreachable")
	}
	cancel()

	var resultCache cachepkg.Cache
	switch cfg.CacheBackend {
	case "redis":
		rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("redis unreachable")
		}
		cancel()
		resultCache = cachepkg.NewRedis(rdb)
	default:
		mem := cachepkg.NewMemory(time.Minute)
		defer mem.Close()
		resultCache = mem
	}

	bus := events.NewInMemory(256)
	recorder := visits.NewRecorder(cfg.VisitQueueCap, cfg.VisitWorkers, st, bus, log)

	recommender := recommend.NewEngine(st, st, resultCache, cfg.CacheTTL, log)
	go recommender.ConsumeVisits(context.Background(), bus.SubscribeItemVisited())

	searcher := ranking.NewEngine(st, cfg.MaxCandidates, log)

	geoClient := geoip.NewClient(cfg.GeoIPBaseURL)
	locator := nearby.NewLocator(st, geoClient, nearby.Config{
		PropertyLimit:   cfg.NearbyPropertyLimit,
		VehicleLimit:    cfg.NearbyVehicleLimit,
		DefaultRadiusKm: cfg.NearbyDefaultRadiusKm,
	}, log)

	router := BuildRouter(RouterDeps{
		Recommend: recommender,
		Search:    searcher,
		Locator:   locator,
		Recorder:  recorder,
		Profiles:  st,
		Verifier:  auth.NewVerifier(cfg.JWTSecret),
		Log:       log,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("discovery-api listening")
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
