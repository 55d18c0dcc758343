package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lehigh-university-libraries/atlaserve/internal/atlas"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
)

// DefaultCacheMaxAge is how long clients may cache atlas pages.
const DefaultCacheMaxAge = 24 * time.Hour

// Store is the atlas data the handlers serve from.
type Store interface {
	Load() (*storage.Snapshot, error)
	OpenImage(snap *storage.Snapshot, index int) (*os.File, fs.FileInfo, error)
}

type Handler struct {
	store       Store
	cacheMaxAge time.Duration

	// encoded atlas.json body of the last snapshot served
	encoded atomic.Pointer[encodedDocument]
}

type encodedDocument struct {
	snapshot *storage.Snapshot
	body     []byte
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error           string            `json:"error"`
	AvailableRoutes map[string]string `json:"available_routes,omitempty"`
	Examples        map[string]string `json:"examples,omitempty"`
}

func New(store Store, cacheMaxAge time.Duration) *Handler {
	if cacheMaxAge <= 0 {
		cacheMaxAge = DefaultCacheMaxAge
	}
	return &Handler{
		store:       store,
		cacheMaxAge: cacheMaxAge,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, code int) {
	body, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	body = append(body, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Unable to write JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	code := atlas.StatusCode(err)
	attrs := []any{"request_id", RequestID(r.Context()), "path", r.URL.Path, "status", code, "err", err}

	var integrity *atlas.IntegrityError
	switch {
	case errors.As(err, &integrity):
		slog.Error("Atlas data integrity fault", append(attrs, "atlas", integrity.Atlas, "image", integrity.Name)...)
	case code >= http.StatusInternalServerError:
		slog.Error(message, attrs...)
	default:
		slog.Debug(message, attrs...)
	}

	h.writeJSON(w, ErrorResponse{Error: message}, code)
}

// errorMessage is the client-facing text for an error from the store or
// the compression step.
func errorMessage(err error) string {
	var integrity *atlas.IntegrityError
	switch {
	case errors.Is(err, atlas.ErrDataNotFound):
		return "Atlas data not found"
	case errors.Is(err, atlas.ErrInvalidFormat):
		return "Invalid atlas data"
	case errors.As(err, &integrity):
		return "Atlas data is inconsistent"
	case errors.Is(err, atlas.ErrImageFileMissing):
		return "Image not found"
	default:
		return "Internal server error"
	}
}
