package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/lehigh-university-libraries/atlaserve/internal/atlas"
)

var atlasImageName = regexp.MustCompile(`^(\d+)\.png$`)

// HandleAtlasImage serves the page file of the atlas at the position given
// in the path. The index is into the manifest's atlas list, not an image id.
func (h *Handler) HandleAtlasImage(w http.ResponseWriter, r *http.Request) {
	m := atlasImageName.FindStringSubmatch(r.PathValue("file"))
	if m == nil {
		h.HandleNotFound(w, r)
		return
	}

	snap, err := h.store.Load()
	if err != nil {
		h.writeError(w, r, errorMessage(err), err)
		return
	}

	index, err := strconv.Atoi(m[1])
	if err != nil {
		// too many digits for an int, so certainly past the last atlas
		err = fmt.Errorf("%w: %s", atlas.ErrIndexOutOfRange, m[1])
		h.writeError(w, r, fmt.Sprintf("Atlas with index %s not found", m[1]), err)
		return
	}

	f, info, err := h.store.OpenImage(snap, index)
	if err != nil {
		message := errorMessage(err)
		if errors.Is(err, atlas.ErrIndexOutOfRange) {
			message = fmt.Sprintf("Atlas with index %d not found", index)
		}
		h.writeError(w, r, message, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", atlas.ContentType(info.Name()))
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.cacheMaxAge.Seconds())))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
