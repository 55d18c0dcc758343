package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/atlaserve/internal/atlas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `{
	"metadata": {"cat": {"title": "Cat"}, "dog": {"title": "Dog"}},
	"atlases": [
		{"scale": 1, "width": 4, "height": 4, "file": "atlas_0.png", "uv": {"cat": [0, 0, 1, 1]}},
		{"scale": 1, "width": 4, "height": 4, "file": "missing.png", "uv": {"dog": [0, 0, 1, 1]}}
	]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newStore(t *testing.T, content string) (*AtlasStore, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "atlas_data.json"), content)
	writeFile(t, filepath.Join(dir, "atlas_0.png"), "png-bytes")
	return New(dir, "atlas_data.json"), dir
}

func TestNew_ResolvesManifestPath(t *testing.T) {
	s := New("/srv/atlases", "atlas_data.json")
	assert.Equal(t, filepath.Join("/srv/atlases", "atlas_data.json"), s.ManifestPath())
	assert.Equal(t, "/srv/atlases", s.Dir())

	s = New("/srv/atlases", "/etc/atlas.json")
	assert.Equal(t, "/etc/atlas.json", s.ManifestPath())
}

func TestLoad_MissingManifest(t *testing.T) {
	s := New(t.TempDir(), "atlas_data.json")

	snap, err := s.Load()
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, atlas.ErrDataNotFound))
}

func TestLoad_InvalidFormat(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "this is not json"},
		{name: "truncated", content: `{"metadata": {"cat": `},
		{name: "root array", content: `[1, 2, 3]`},
		{name: "null", content: `null`},
		{name: "empty file", content: ``},
		{name: "metadata wrong type", content: `{"metadata": "cat", "atlases": []}`},
		{name: "atlases wrong type", content: `{"metadata": {}, "atlases": {"a": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t, tt.content)
			_, err := s.Load()
			assert.True(t, errors.Is(err, atlas.ErrInvalidFormat), "got %v", err)
		})
	}
}

func TestLoad_Parses(t *testing.T) {
	s, _ := newStore(t, manifest)

	snap, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "dog"}, snap.Document.Metadata.Names())
	assert.Len(t, snap.Document.Atlases, 2)
	assert.False(t, snap.ModTime.IsZero())
}

func TestLoad_MissingSectionsAreEmpty(t *testing.T) {
	s, _ := newStore(t, `{}`)

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Document.Metadata)
	assert.Empty(t, snap.Document.Atlases)
}

func TestLoad_CachesUntilModified(t *testing.T) {
	s, dir := newStore(t, manifest)
	path := filepath.Join(dir, "atlas_data.json")

	first, err := s.Load()
	require.NoError(t, err)
	second, err := s.Load()
	require.NoError(t, err)
	assert.Same(t, first, second)

	writeFile(t, path, `{"metadata": {"dog": {}, "cat": {}}, "atlases": []}`)
	later := first.ModTime.Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := s.Load()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, []string{"dog", "cat"}, third.Document.Metadata.Names())
}

func TestLoad_Invalidate(t *testing.T) {
	s, _ := newStore(t, manifest)

	first, err := s.Load()
	require.NoError(t, err)

	s.Invalidate()

	second, err := s.Load()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Document.Metadata.Names(), second.Document.Metadata.Names())
}

func TestLoad_ManifestRemovedAfterCaching(t *testing.T) {
	s, dir := newStore(t, manifest)

	_, err := s.Load()
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "atlas_data.json")))

	_, err = s.Load()
	assert.True(t, errors.Is(err, atlas.ErrDataNotFound))
}

func TestLoad_ConcurrentReaders(t *testing.T) {
	s, _ := newStore(t, manifest)

	var wg sync.WaitGroup
	snaps := make([]*Snapshot, 32)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := s.Load()
			if err == nil {
				snaps[i] = snap
			}
		}(i)
	}
	wg.Wait()

	for _, snap := range snaps {
		require.NotNil(t, snap)
		assert.Equal(t, []string{"cat", "dog"}, snap.Document.Metadata.Names())
	}
}

func TestLoad_YAMLManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "atlas_data.yaml"), `
metadata:
  zebra: {title: Zebra}
  apple: {title: Apple}
atlases:
  - {scale: 1, width: 2, height: 2, file: a.png, uv: {apple: [0, 0, 1, 1]}}
`)
	s := New(dir, "atlas_data.yaml")

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra", "apple"}, snap.Document.Metadata.Names())
	require.Len(t, snap.Document.Atlases, 1)
	assert.Equal(t, "a.png", snap.Document.Atlases[0].File)
}

func TestParse_YAMLInvalid(t *testing.T) {
	tests := []string{
		"- just\n- a\n- list\n",
		"metadata: [1, 2]\n",
		"metadata: {a: 1\n",
		"",
	}
	for _, input := range tests {
		_, err := Parse([]byte(input), "atlas.yml")
		assert.True(t, errors.Is(err, atlas.ErrInvalidFormat), "input %q: got %v", input, err)
	}
}

func TestOpenImage(t *testing.T) {
	s, _ := newStore(t, manifest)
	snap, err := s.Load()
	require.NoError(t, err)

	f, info, err := s.OpenImage(snap, 0)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(len("png-bytes")), info.Size())

	_, _, err = s.OpenImage(snap, 1)
	assert.True(t, errors.Is(err, atlas.ErrImageFileMissing))

	_, _, err = s.OpenImage(snap, 2)
	assert.True(t, errors.Is(err, atlas.ErrIndexOutOfRange))

	_, _, err = s.OpenImage(snap, -1)
	assert.True(t, errors.Is(err, atlas.ErrIndexOutOfRange))
}

func TestImagePath(t *testing.T) {
	s := New("/srv/atlases", "atlas_data.json")

	path, err := s.ImagePath("pages/atlas_0.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/atlases", "pages", "atlas_0.png"), path)

	for _, file := range []string{"", "../secret.png", "/etc/passwd", "pages/../../x.png"} {
		_, err := s.ImagePath(file)
		assert.True(t, errors.Is(err, atlas.ErrImageFileMissing), "file %q", file)
	}
}
