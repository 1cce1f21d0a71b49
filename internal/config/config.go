package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds every tunable of the discovery service. Defaults apply
// first, then DISCOVERY_-prefixed environment variables override.
type Config struct {
	Port        int    `koanf:"port" validate:"gt=0,lte=65535"`
	DatabaseURL string `koanf:"database_url"`
	// Empty disables bearer-token verification; every request is anonymous.
	JWTSecret string `koanf:"jwt_secret"`

	CacheBackend string        `koanf:"cache_backend" validate:"oneof=memory redis"`
	CacheTTL     time.Duration `koanf:"cache_ttl" validate:"gt=0"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	GeoIPBaseURL string `koanf:"geoip_base_url" validate:"url"`

	MaxCandidates         int     `koanf:"max_candidates" validate:"gt=0"`
	NearbyPropertyLimit   int     `koanf:"nearby_property_limit" validate:"gt=0"`
	NearbyVehicleLimit    int     `koanf:"nearby_vehicle_limit" validate:"gt=0"`
	NearbyDefaultRadiusKm float64 `koanf:"nearby_default_radius_km" validate:"gt=0"`

	VisitWorkers  int `koanf:"visit_workers" validate:"gt=0"`
	VisitQueueCap int `koanf:"visit_queue_cap" validate:"gt=0"`
}

func defaults() Config {
	return Config{
		Port:                  4005,
		CacheBackend:          "memory",
		CacheTTL:              5 * time.Minute,
		RedisAddr:             "localhost:6379",
		GeoIPBaseURL:          "http://ip-api.com",
		MaxCandidates:         5000,
		NearbyPropertyLimit:   10,
		NearbyVehicleLimit:    50,
		NearbyDefaultRadiusKm: 10,
		VisitWorkers:          2,
		VisitQueueCap:         256,
	}
}

const envPrefix = "DISCOVERY_"

// Load builds the config from defaults plus environment overrides, e.g.
// DISCOVERY_PORT=4005, DISCOVERY_CACHE_TTL=5m, DISCOVERY_REDIS_ADDR=...
func Load() (*Config, error) {
	k := koanf.New(".")

	def := defaults()
	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
