package restyle

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/redim/palette"
	"github.com/hazyhaar/redim/prefs"
)

// statusResponse is the GET /status payload.
type statusResponse struct {
	Enabled bool   `json:"enabled"`
	Active  bool   `json:"active"`
	Version string `json:"version"`
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

type paletteEntry struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	SourceHex string `json:"source_hex"`
	TargetHex string `json:"target_hex"`
}

// NewRouter exposes the control API. Writers only touch the preference
// store; the watcher propagates the change to the restyler, so HTTP and
// MCP clients converge through the same path.
func NewRouter(ryl *Restyler, store *prefs.Store, pal *palette.Map, version string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/v1/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, statusResponse{
			Enabled: store.Enabled(req.Context()),
			Active:  ryl.Active(),
			Version: version,
		})
	})

	r.Put("/api/v1/enabled", func(w http.ResponseWriter, req *http.Request) {
		var body enabledRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.SetEnabled(req.Context(), body.Enabled); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"enabled": body.Enabled})
	})

	r.Get("/api/v1/palette", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, paletteEntries(pal))
	})

	return r
}

func paletteEntries(pal *palette.Map) []paletteEntry {
	var out []paletteEntry
	for _, e := range pal.Entries() {
		out = append(out, paletteEntry{
			Source:    palette.FormatRGB(e.Source),
			Target:    palette.FormatRGB(e.Target),
			SourceHex: e.Source.Hex(),
			TargetHex: e.Target.Hex(),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
