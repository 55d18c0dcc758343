package handlers

import (
	"log/slog"
	"net/http"
)

var availableRoutes = map[string]string{
	"GET /atlas.json":        "Returns the complete compressed atlas JSON",
	"GET /atlas/{index}.png": "Returns the atlas page image at position {index} in the atlas list",
}

var routeExamples = map[string]string{
	"/atlas.json":  "Complete atlas JSON",
	"/atlas/0.png": "First atlas page (index 0)",
	"/atlas/1.png": "Second atlas page (index 1)",
}

// Routes returns the full HTTP surface wrapped in the CORS and request
// logging middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /atlas.json", h.HandleAtlasJSON)
	mux.HandleFunc("GET /atlas/{file}", h.HandleAtlasImage)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("/", h.HandleNotFound)

	return withRequestLogging(withCORS(mux))
}

// HandleNotFound answers unmatched requests with the list of routes.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Route not found", "request_id", RequestID(r.Context()), "method", r.Method, "path", r.URL.Path)
	h.writeJSON(w, ErrorResponse{
		Error:           "Route not found",
		AvailableRoutes: availableRoutes,
		Examples:        routeExamples,
	}, http.StatusNotFound)
}
