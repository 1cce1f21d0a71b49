package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/discovery-api/internal/geoip"
	"github.com/yourorg/discovery-api/internal/nearby"
)

type NearbyDeps struct {
	Locator *nearby.Locator
}

func RegisterNearby(r chi.Router, d NearbyDeps) {
	r.Get("/nearby", func(w http.ResponseWriter, req *http.Request) {
		lat, okLat := queryFloat(req, "latitude")
		lng, okLng := queryFloat(req, "longitude")
		maxDist, okDist := queryFloat(req, "maxDistance")
		if !okLat || !okLng || !okDist {
			fail(w, req, http.StatusBadRequest, "latitude, longitude and maxDistance must be numeric")
			return
		}

		loc, err := d.Locator.ResolveCoordinates(req.Context(), nearby.CoordinateRequest{
			Lat: lat, Lng: lng, ClientIP: geoip.ClientIP(req),
		})
		if err != nil {
			writeLocationError(w, req, err)
			return
		}

		kindParam := req.URL.Query().Get("type")
		if kindParam == "" {
			kindParam = "all"
		}
		radius := d.Locator.Config().DefaultRadiusKm
		if maxDist != nil {
			radius = *maxDist
		}

		res, err := d.Locator.FindNearby(req.Context(), loc.Lat, loc.Lng, kindParam, radius)
		if err != nil {
			if errors.Is(err, nearby.ErrInvalidCoordinates) || errors.Is(err, nearby.ErrUnknownType) {
				fail(w, req, http.StatusBadRequest, err.Error())
				return
			}
			fail(w, req, http.StatusInternalServerError, "nearby search unavailable")
			return
		}

		render.JSON(w, req, map[string]any{
			"success": true,
			"data": map[string]any{
				"location":   loc,
				"properties": res.Properties,
				"vehicles":   res.Vehicles,
				"total":      res.Total,
			},
		})
	})

	r.Get("/nearby/coordinates", func(w http.ResponseWriter, req *http.Request) {
		lat, okLat := queryFloat(req, "latitude")
		lng, okLng := queryFloat(req, "longitude")
		if !okLat || !okLng {
			fail(w, req, http.StatusBadRequest, "latitude and longitude must be numeric")
			return
		}

		loc, err := d.Locator.ResolveCoordinates(req.Context(), nearby.CoordinateRequest{
			Lat: lat, Lng: lng, ClientIP: geoip.ClientIP(req),
		})
		if err != nil {
			writeLocationError(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"success": true, "data": loc})
	})
}

func writeLocationError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, nearby.ErrInvalidCoordinates):
		fail(w, req, http.StatusBadRequest, err.Error())
	case errors.Is(err, nearby.ErrCoordinatesUnavailable):
		fail(w, req, http.StatusServiceUnavailable, err.Error())
	default:
		fail(w, req, http.StatusInternalServerError, "location resolution failed")
	}
}
