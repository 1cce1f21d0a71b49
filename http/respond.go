package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

// fail writes the uniform error payload every endpoint shares.
func fail(w http.ResponseWriter, req *http.Request, status int, message string) {
	render.Status(req, status)
	render.JSON(w, req, map[string]any{"success": false, "message": message})
}

func queryInt(req *http.Request, key string, def int) int {
	v := req.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// queryFloat distinguishes absent from malformed: absent returns (nil, true),
// malformed returns (nil, false) so callers can 400 on garbage.
func queryFloat(req *http.Request, key string) (*float64, bool) {
	v := req.URL.Query().Get(key)
	if v == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}
