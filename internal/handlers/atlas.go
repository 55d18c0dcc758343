package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/atlaserve/internal/atlas"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
)

// HandleAtlasJSON serves the compressed atlas document.
func (h *Handler) HandleAtlasJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Load()
	if err != nil {
		h.writeError(w, r, errorMessage(err), err)
		return
	}

	body, err := h.documentBody(snap)
	if err != nil {
		h.writeError(w, r, errorMessage(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		slog.Debug("Unable to write atlas document", "request_id", RequestID(r.Context()), "err", err)
	}
}

// documentBody encodes snap once and reuses the bytes until the store
// hands out a different snapshot.
func (h *Handler) documentBody(snap *storage.Snapshot) ([]byte, error) {
	if cached := h.encoded.Load(); cached != nil && cached.snapshot == snap {
		return cached.body, nil
	}

	body, err := atlas.Marshal(snap.Document)
	if err != nil {
		return nil, err
	}
	h.encoded.Store(&encodedDocument{snapshot: snap, body: body})
	return body, nil
}
