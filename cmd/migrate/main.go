package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/discovery-api/internal/config"
	"github.com/yourorg/discovery-api/internal/logger"
	"github.com/yourorg/discovery-api/internal/store"
)

// migrate applies the discovery schema and exits. Run it once per deploy,
// before the service starts.
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres unreachable")
	}
	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("schema up to date")
}
