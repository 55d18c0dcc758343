package atlas

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lehigh-university-libraries/atlaserve/internal/models"
)

// Marshal compresses doc and encodes the wire document. The output is
// byte-identical for identical documents.
func Marshal(doc *models.AtlasDocument) ([]byte, error) {
	compressed, err := Compress(doc, BuildMapping(doc))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(compressed); err != nil {
		return nil, fmt.Errorf("failed to encode atlas document: %w", err)
	}
	return buf.Bytes(), nil
}
