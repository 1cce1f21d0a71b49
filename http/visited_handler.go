package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/discovery-api/internal/auth"
	"github.com/yourorg/discovery-api/internal/catalog"
	"github.com/yourorg/discovery-api/internal/visits"
)

type VisitedDeps struct {
	Recorder *visits.Recorder
}

// RegisterVisited exposes the one mutation of the discovery core: appending
// to the caller's capped recently-visited list. Recording is asynchronous;
// the handler only validates and enqueues.
func RegisterVisited(r chi.Router, d VisitedDeps) {
	r.Post("/visited/{kind}/{id}", func(w http.ResponseWriter, req *http.Request) {
		userID := auth.UserIDFromContext(req.Context())
		if userID == "" {
			fail(w, req, http.StatusUnauthorized, "authentication required")
			return
		}
		kind, ok := catalog.ParseKind(chi.URLParam(req, "kind"))
		if !ok {
			fail(w, req, http.StatusNotFound, "unknown item type")
			return
		}
		itemID := chi.URLParam(req, "id")
		if itemID == "" {
			fail(w, req, http.StatusBadRequest, "item id required")
			return
		}

		d.Recorder.Enqueue(visits.Job{UserID: userID, Kind: kind, ItemID: itemID})
		render.Status(req, http.StatusAccepted)
		render.JSON(w, req, map[string]any{"success": true, "message": "visit recorded"})
	})
}
