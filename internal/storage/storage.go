package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/atlaserve/internal/atlas"
	"github.com/lehigh-university-libraries/atlaserve/internal/models"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// Snapshot is an immutable parsed manifest. Callers must not modify Document.
type Snapshot struct {
	Document *models.AtlasDocument
	ModTime  time.Time
	Size     int64
	LoadedAt time.Time
}

// AtlasStore reads the atlas manifest and the page files next to it. The
// parsed manifest is cached until the file's modification time or size changes.
type AtlasStore struct {
	dir          string
	manifestPath string

	mu       sync.RWMutex
	snapshot *Snapshot
	group    singleflight.Group
}

// New creates a store for the manifest at manifestPath. A relative manifest
// path is resolved against dir, which is also the root for page files.
func New(dir, manifestPath string) *AtlasStore {
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(dir, manifestPath)
	}
	return &AtlasStore{
		dir:          dir,
		manifestPath: manifestPath,
	}
}

// Dir returns the atlas page directory.
func (s *AtlasStore) Dir() string {
	return s.dir
}

// ManifestPath returns the resolved manifest path.
func (s *AtlasStore) ManifestPath() string {
	return s.manifestPath
}

// Load returns the current snapshot, re-reading the manifest only when it
// changed on disk. Concurrent reloads of the same change are coalesced.
func (s *AtlasStore) Load() (*Snapshot, error) {
	info, err := os.Stat(s.manifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", atlas.ErrDataNotFound, s.manifestPath)
		}
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}

	if snap := s.cached(info); snap != nil {
		return snap, nil
	}

	key := fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size())
	v, err, _ := s.group.Do(key, func() (any, error) {
		if snap := s.cached(info); snap != nil {
			return snap, nil
		}
		snap, err := s.read(info)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.snapshot = snap
		s.mu.Unlock()

		slog.Info("Atlas manifest loaded",
			"path", s.manifestPath,
			"images", len(snap.Document.Metadata),
			"atlases", len(snap.Document.Atlases))
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the cached snapshot so the next Load re-reads the manifest.
func (s *AtlasStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
}

// ImagePath resolves an atlas descriptor's file against the atlas directory.
// Paths that would leave the directory are reported as missing.
func (s *AtlasStore) ImagePath(file string) (string, error) {
	if file == "" || !filepath.IsLocal(filepath.FromSlash(file)) {
		return "", fmt.Errorf("%w: %q is not inside the atlas directory", atlas.ErrImageFileMissing, file)
	}
	return filepath.Join(s.dir, filepath.FromSlash(file)), nil
}

// OpenImage opens the page file of the atlas at index in snap.
func (s *AtlasStore) OpenImage(snap *Snapshot, index int) (*os.File, fs.FileInfo, error) {
	atlases := snap.Document.Atlases
	if index < 0 || index >= len(atlases) {
		return nil, nil, fmt.Errorf("%w: %d", atlas.ErrIndexOutOfRange, index)
	}

	path, err := s.ImagePath(atlases[index].File)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", atlas.ErrImageFileMissing, path)
		}
		return nil, nil, fmt.Errorf("failed to open atlas image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat atlas image: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s is a directory", atlas.ErrImageFileMissing, path)
	}

	return f, info, nil
}

func (s *AtlasStore) cached(info fs.FileInfo) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot != nil && s.snapshot.ModTime.Equal(info.ModTime()) && s.snapshot.Size == info.Size() {
		return s.snapshot
	}
	return nil
}

func (s *AtlasStore) read(info fs.FileInfo) (*Snapshot, error) {
	data, err := os.ReadFile(s.manifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", atlas.ErrDataNotFound, s.manifestPath)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	doc, err := Parse(data, s.manifestPath)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Document: doc,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
		LoadedAt: time.Now(),
	}, nil
}

// Parse decodes a manifest. Files ending in .yaml or .yml are read as YAML,
// everything else as JSON.
func Parse(data []byte, name string) (*models.AtlasDocument, error) {
	var doc models.AtlasDocument

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("%w: %v", atlas.ErrInvalidFormat, err)
		}
		if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: manifest root is not a mapping", atlas.ErrInvalidFormat)
		}
		if err := root.Content[0].Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", atlas.ErrInvalidFormat, err)
		}
	default:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: manifest root is not an object", atlas.ErrInvalidFormat)
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", atlas.ErrInvalidFormat, err)
		}
	}

	return &doc, nil
}
