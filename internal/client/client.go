// Package client builds the URLs a scene client uses to fetch atlas data.
package client

import (
	"fmt"
	"strings"
)

const (
	DefaultBaseURL    = "http://localhost:8000/"
	DefaultAtlasCount = 128
)

// Config is what a scene client needs to reach the server. The server does
// not enforce AtlasCount; it must match the number of atlases served.
type Config struct {
	BaseURL    string `yaml:"base_url" json:"base_url"`
	AtlasCount int    `yaml:"atlas_count" json:"atlas_count"`
}

// URLs is the resolved URL set for a Config.
type URLs struct {
	MetadataURL string   `yaml:"metadata_url" json:"metadata_url"`
	AtlasURLs   []string `yaml:"atlas_urls" json:"atlas_urls"`
}

// New returns a Config with defaults applied for an empty base URL or an
// atlas count below one.
func New(baseURL string, atlasCount int) Config {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if atlasCount < 1 {
		atlasCount = DefaultAtlasCount
	}
	return Config{BaseURL: baseURL, AtlasCount: atlasCount}
}

func (c Config) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

// MetadataURL returns the URL of the compressed atlas document.
func (c Config) MetadataURL() string {
	return c.base() + "/atlas.json"
}

// AtlasURL returns the URL of the atlas page at index i.
func (c Config) AtlasURL(i int) string {
	return fmt.Sprintf("%s/atlas/%d.png", c.base(), i)
}

// AtlasURLs returns one page URL per index in [0, AtlasCount).
func (c Config) AtlasURLs() []string {
	urls := make([]string, c.AtlasCount)
	for i := range urls {
		urls[i] = c.AtlasURL(i)
	}
	return urls
}

// Resolve returns every URL for c.
func (c Config) Resolve() URLs {
	return URLs{
		MetadataURL: c.MetadataURL(),
		AtlasURLs:   c.AtlasURLs(),
	}
}

// Equal reports whether u is exactly the URL set c resolves to.
func (u URLs) Equal(c Config) bool {
	want := c.Resolve()
	if u.MetadataURL != want.MetadataURL || len(u.AtlasURLs) != len(want.AtlasURLs) {
		return false
	}
	for i := range want.AtlasURLs {
		if u.AtlasURLs[i] != want.AtlasURLs[i] {
			return false
		}
	}
	return true
}
