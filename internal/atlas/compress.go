package atlas

import (
	"encoding/json"

	"github.com/lehigh-university-libraries/atlaserve/internal/models"
)

// Mapping is the name to id assignment of one atlas document. Ids follow the
// order of the metadata table, starting at 0.
type Mapping struct {
	IDs     map[string]int
	Entries []json.RawMessage
}

// BuildMapping assigns ids to metadata entries in table order.
func BuildMapping(doc *models.AtlasDocument) *Mapping {
	m := &Mapping{
		IDs:     make(map[string]int, len(doc.Metadata)),
		Entries: make([]json.RawMessage, 0, len(doc.Metadata)),
	}
	for _, entry := range doc.Metadata {
		m.IDs[entry.Name] = len(m.Entries)
		m.Entries = append(m.Entries, entry.Value)
	}
	return m
}

// Compress re-keys every atlas uv table by id. The first uv name without
// metadata aborts the whole document with an *IntegrityError.
func Compress(doc *models.AtlasDocument, mapping *Mapping) (*models.CompressedAtlasDocument, error) {
	out := &models.CompressedAtlasDocument{
		Version: doc.Version,
		Mapping: mapping.Entries,
		Atlases: make([]models.CompressedAtlas, 0, len(doc.Atlases)),
	}

	for i, atlas := range doc.Atlases {
		compressed := models.CompressedAtlas{
			Scale:  atlas.Scale,
			Width:  atlas.Width,
			Height: atlas.Height,
			SHA:    atlas.SHA,
			UV:     make(models.IDUVTable, 0, len(atlas.UV)),
		}
		for _, uv := range atlas.UV {
			id, ok := mapping.IDs[uv.Name]
			if !ok {
				return nil, &IntegrityError{Atlas: i, Name: uv.Name}
			}
			compressed.UV = append(compressed.UV, models.IDUVEntry{ID: id, Rect: uv.Rect})
		}
		out.Atlases = append(out.Atlases, compressed)
	}

	return out, nil
}

// Verify returns every integrity fault in doc, in atlas then uv order.
func Verify(doc *models.AtlasDocument) []*IntegrityError {
	mapping := BuildMapping(doc)

	var faults []*IntegrityError
	for i, atlas := range doc.Atlases {
		for _, uv := range atlas.UV {
			if _, ok := mapping.IDs[uv.Name]; !ok {
				faults = append(faults, &IntegrityError{Atlas: i, Name: uv.Name})
			}
		}
	}
	return faults
}
