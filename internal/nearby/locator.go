package nearby

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/discovery-api/internal/catalog"
	"github.com/yourorg/discovery-api/internal/geo"
	"github.com/yourorg/discovery-api/internal/geoip"
	"github.com/yourorg/discovery-api/internal/metrics"
)

var (
	// ErrInvalidCoordinates flags out-of-range or non-numeric lat/lng input.
	ErrInvalidCoordinates = errors.New("latitude must be in [-90,90] and longitude in [-180,180]")
	// ErrCoordinatesUnavailable means both the query params and the IP
	// fallback failed.
	ErrCoordinatesUnavailable = errors.New("coordinates unavailable; supply latitude and longitude manually")
	// ErrUnknownType flags a type parameter outside properties/vehicles/all.
	ErrUnknownType = errors.New("type must be properties, vehicles or all")
)

// Repository is the proximity-query slice of the candidate store.
type Repository interface {
	FindNear(ctx context.Context, kind catalog.Kind, lat, lng, maxMeters float64, limit int) ([]catalog.CandidateItem, error)
}

// GeoIP resolves an IP to coordinates; empty IP means "locate the service's
// own vantage point".
type GeoIP interface {
	Lookup(ctx context.Context, ip string) (*geoip.Position, error)
}

// Config carries the per-kind result caps and the default search radius.
type Config struct {
	PropertyLimit   int
	VehicleLimit    int
	DefaultRadiusKm float64
}

// Location is a resolved caller position with its provenance.
type Location struct {
	Lat     float64 `json:"latitude"`
	Lng     float64 `json:"longitude"`
	City    string  `json:"city,omitempty"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country,omitempty"`
	IP      string  `json:"ip,omitempty"`
	Source  string  `json:"source"` // "query" or "ip"
}

// CoordinateRequest is the raw positional input of one request.
type CoordinateRequest struct {
	Lat, Lng *float64
	ClientIP string
}

// Result groups annotated items per kind for the nearby response.
type Result struct {
	Properties []catalog.SearchResult
	Vehicles   []catalog.SearchResult
	Total      int
}

type Locator struct {
	repo Repository
	geo  GeoIP
	cfg  Config
	log  zerolog.Logger
}

func NewLocator(repo Repository, geoClient GeoIP, cfg Config, log zerolog.Logger) *Locator {
	if cfg.PropertyLimit <= 0 {
		cfg.PropertyLimit = 10
	}
	if cfg.VehicleLimit <= 0 {
		cfg.VehicleLimit = 50
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 10
	}
	return &Locator{repo: repo, geo: geoClient, cfg: cfg, log: log.With().Str("component", "nearby").Logger()}
}

func (l *Locator) Config() Config { return l.cfg }

// ResolveCoordinates prefers explicit query coordinates; otherwise it falls
// back to geolocating the caller's forwarded IP. Private and loopback
// addresses omit the IP so the geolocation service resolves its own vantage
// point.
func (l *Locator) ResolveCoordinates(ctx context.Context, req CoordinateRequest) (*Location, error) {
	if req.Lat != nil || req.Lng != nil {
		if req.Lat == nil || req.Lng == nil || !geo.ValidCoordinates(*req.Lat, *req.Lng) {
			return nil, ErrInvalidCoordinates
		}
		return &Location{Lat: *req.Lat, Lng: *req.Lng, Source: "query"}, nil
	}

	ip := geoip.NormalizeIP(req.ClientIP)
	if ip != "" && geoip.IsPrivate(ip) {
		ip = ""
	}
	pos, err := l.geo.Lookup(ctx, ip)
	if err != nil {
		metrics.GeoIPLookups.WithLabelValues("fail").Inc()
		l.log.Warn().Err(err).Str("ip", ip).Msg("ip geolocation failed")
		return nil, ErrCoordinatesUnavailable
	}
	metrics.GeoIPLookups.WithLabelValues("success").Inc()
	return &Location{
		Lat: pos.Lat, Lng: pos.Lon,
		City: pos.City, Region: pos.Region, Country: pos.Country,
		IP: pos.IP, Source: "ip",
	}, nil
}

// FindNearby queries one or both kinds around the point. kind is the API's
// plural spelling or "all"; "all" issues both queries concurrently and fails
// the whole request when either does.
func (l *Locator) FindNearby(ctx context.Context, lat, lng float64, kindParam string, maxDistanceKm float64) (*Result, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, ErrInvalidCoordinates
	}
	if maxDistanceKm <= 0 {
		maxDistanceKm = l.cfg.DefaultRadiusKm
	}
	maxMeters := maxDistanceKm * 1000

	wantProps := kindParam == "properties" || kindParam == "all" || kindParam == ""
	wantVehicles := kindParam == "vehicles" || kindParam == "all" || kindParam == ""
	if !wantProps && !wantVehicles {
		return nil, fmt.Errorf("%w: got %q", ErrUnknownType, kindParam)
	}

	res := &Result{Properties: []catalog.SearchResult{}, Vehicles: []catalog.SearchResult{}}
	g, gctx := errgroup.WithContext(ctx)
	if wantProps {
		g.Go(func() error {
			items, err := l.repo.FindNear(gctx, catalog.KindProperty, lat, lng, maxMeters, l.cfg.PropertyLimit)
			if err != nil {
				return fmt.Errorf("nearby properties: %w", err)
			}
			res.Properties = annotate(items, lat, lng)
			return nil
		})
	}
	if wantVehicles {
		g.Go(func() error {
			items, err := l.repo.FindNear(gctx, catalog.KindVehicle, lat, lng, maxMeters, l.cfg.VehicleLimit)
			if err != nil {
				return fmt.Errorf("nearby vehicles: %w", err)
			}
			res.Vehicles = annotate(items, lat, lng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Total = len(res.Properties) + len(res.Vehicles)
	return res, nil
}

// annotate attaches rounded haversine distances, keeping the store's native
// proximity order.
func annotate(items []catalog.CandidateItem, lat, lng float64) []catalog.SearchResult {
	out := make([]catalog.SearchResult, 0, len(items))
	for i := range items {
		var dist *float64
		if items[i].Coordinates.Set {
			d := geo.RoundKm(geo.HaversineKm(lat, lng, items[i].Coordinates.Lat, items[i].Coordinates.Lng))
			dist = &d
		}
		out = append(out, catalog.ToSearchResult(&items[i], dist))
	}
	return out
}
