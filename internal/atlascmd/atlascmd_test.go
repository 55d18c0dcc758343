package atlascmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/atlaserve/internal/client"
	"github.com/lehigh-university-libraries/atlaserve/internal/config"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func atlasDir(t *testing.T, manifest string, pages ...string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "atlas_data.json"), manifest)
	for _, page := range pages {
		writeFile(t, filepath.Join(dir, page), "page")
	}
	return dir
}

func configFor(dir string) ConfigFunc {
	return func() *config.Config {
		cfg := config.Default()
		cfg.Server.AtlasDir = dir
		cfg.Client.BaseURL = "https://posters.example.org/"
		cfg.Client.AtlasCount = 2
		return cfg
	}
}

const consistent = `{
	"metadata": {"cat": {}, "dog": {}},
	"atlases": [
		{"file": "0.png", "uv": {"cat": [0]}},
		{"file": "1.png", "uv": {"dog": [1]}}
	]
}`

func TestValidate_Consistent(t *testing.T) {
	dir := atlasDir(t, consistent, "0.png", "1.png")

	report, err := Validate(storage.New(dir, "atlas_data.json"))
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Images)
	assert.Equal(t, 2, report.Atlases)

	var out bytes.Buffer
	cmd := NewValidateCmd(configFor(dir))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "manifest is consistent")
}

func TestValidate_ReportsFaultsAndMissingPages(t *testing.T) {
	dir := atlasDir(t, `{
		"metadata": {"cat": {}},
		"atlases": [
			{"file": "0.png", "uv": {"cat": [0], "ghost": [1]}},
			{"file": "1.png", "uv": {}}
		]
	}`, "0.png")

	report, err := Validate(storage.New(dir, "atlas_data.json"))
	require.NoError(t, err)
	assert.False(t, report.OK())
	require.Len(t, report.Faults, 1)
	assert.Equal(t, "ghost", report.Faults[0].Name)
	assert.Equal(t, []MissingPage{{Index: 1, File: "1.png"}}, report.MissingPages)

	var out bytes.Buffer
	cmd := NewValidateCmd(configFor(dir))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{})
	err = cmd.Execute()
	assert.ErrorContains(t, err, "1 integrity faults, 1 missing pages")
	assert.Contains(t, out.String(), `"ghost"`)
}

func TestValidate_DirFlag(t *testing.T) {
	dir := atlasDir(t, consistent, "0.png", "1.png")

	var out bytes.Buffer
	cmd := NewValidateCmd(configFor(filepath.Join(t.TempDir(), "elsewhere")))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--dir", dir})
	require.NoError(t, cmd.Execute())
}

func TestExportCmd(t *testing.T) {
	dir := atlasDir(t, consistent, "0.png", "1.png")
	out := filepath.Join(t.TempDir(), "static")

	var stdout bytes.Buffer
	cmd := NewExportCmd(configFor(dir))
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--out", out})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(out, "atlas.json"))
	assert.FileExists(t, filepath.Join(out, "atlas", "0.png"))
	assert.FileExists(t, filepath.Join(out, "atlas", "1.png"))
	assert.Contains(t, stdout.String(), "pages copied: 2")
}

func TestExecuteURLs_YAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, executeURLs(&out, client.New("https://posters.example.org/", 2), "yaml", nil))

	var decoded urlsOutput
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "https://posters.example.org/atlas.json", decoded.URLs.MetadataURL)
	assert.Equal(t, []string{
		"https://posters.example.org/atlas/0.png",
		"https://posters.example.org/atlas/1.png",
	}, decoded.URLs.AtlasURLs)
	assert.Equal(t, 2, decoded.Client.AtlasCount)
}

func TestExecuteURLs_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, executeURLs(&out, client.New("", 1), "json", nil))

	var decoded urlsOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "http://localhost:8000/atlas.json", decoded.URLs.MetadataURL)
	assert.Equal(t, []string{"http://localhost:8000/atlas/0.png"}, decoded.URLs.AtlasURLs)
}

func TestExecuteURLs_UnsupportedFormat(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorContains(t, executeURLs(&out, client.New("", 1), "xml", nil), "unsupported format")
}

func TestURLsCmd_Check(t *testing.T) {
	dir := atlasDir(t, consistent)

	var out bytes.Buffer
	cmd := NewURLsCmd(configFor(dir))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--check"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "https://posters.example.org/atlas/1.png")

	cmd = NewURLsCmd(configFor(dir))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--check", "--count", "5"})
	assert.ErrorContains(t, cmd.Execute(), "client atlas count 5 does not match the 2 atlases")
}
