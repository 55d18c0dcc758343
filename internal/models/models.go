package models

import "encoding/json"

// AtlasDocument is the manifest written by the atlas packer
type AtlasDocument struct {
	Version  int               `json:"version,omitempty" yaml:"version,omitempty"`
	Metadata MetadataTable     `json:"metadata" yaml:"metadata"`
	Atlases  []AtlasDescriptor `json:"atlases" yaml:"atlases"`
}

// AtlasDescriptor describes one packed atlas page
type AtlasDescriptor struct {
	Scale  float64      `json:"scale" yaml:"scale"`
	Width  int          `json:"width" yaml:"width"`
	Height int          `json:"height" yaml:"height"`
	SHA    string       `json:"sha,omitempty" yaml:"sha,omitempty"`
	UV     NamedUVTable `json:"uv" yaml:"uv"`
	File   string       `json:"file" yaml:"file"`
}

// MetadataEntry is one named image record. Value is passed through untouched.
type MetadataEntry struct {
	Name  string
	Value json.RawMessage
}

// MetadataTable keeps image metadata in manifest order. The position of an
// entry is its compressed id.
type MetadataTable []MetadataEntry

// UVEntry is one named UV rectangle of an atlas page
type UVEntry struct {
	Name string
	Rect json.RawMessage
}

// NamedUVTable keeps an atlas page's UV rectangles in manifest order
type NamedUVTable []UVEntry

// CompressedAtlasDocument is the wire form served at /atlas.json
type CompressedAtlasDocument struct {
	Version int               `json:"version,omitempty"`
	Mapping []json.RawMessage `json:"mapping"`
	Atlases []CompressedAtlas `json:"atlases"`
}

// CompressedAtlas is an atlas descriptor with its UV table re-keyed by id
type CompressedAtlas struct {
	Scale  float64   `json:"scale"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	SHA    string    `json:"sha,omitempty"`
	UV     IDUVTable `json:"uv"`
}

// IDUVEntry is a UV rectangle keyed by compressed image id
type IDUVEntry struct {
	ID   int
	Rect json.RawMessage
}

// IDUVTable serializes as a JSON object keyed by id, even when empty.
type IDUVTable []IDUVEntry
