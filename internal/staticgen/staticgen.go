// Package staticgen writes a static copy of the served atlas data so it can be
// hosted without the server: atlas.json plus every page renamed to its index.
package staticgen

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/atlaserve/internal/atlas"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
)

// CopiedFile records one page copied into the export.
type CopiedFile struct {
	Index    int    `yaml:"index"`
	Original string `yaml:"original"`
	New      string `yaml:"new"`
}

// Result summarizes an export.
type Result struct {
	OutputDir string       `yaml:"output_dir"`
	AtlasJSON string       `yaml:"atlas_json"`
	Atlases   int          `yaml:"atlases"`
	Images    int          `yaml:"images"`
	Copied    []CopiedFile `yaml:"copied"`
	Missing   []string     `yaml:"missing,omitempty"`
}

// Generate loads the manifest from store and writes outDir/atlas.json and
// outDir/atlas/{index}{ext}. Pages whose file is missing are skipped and
// listed in the result; integrity faults abort before anything is written.
func Generate(store *storage.AtlasStore, outDir string) (*Result, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, err
	}
	doc := snap.Document

	body, err := atlas.Marshal(doc)
	if err != nil {
		return nil, err
	}

	pagesDir := filepath.Join(outDir, "atlas")
	if err := os.MkdirAll(pagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &Result{
		OutputDir: outDir,
		AtlasJSON: filepath.Join(outDir, "atlas.json"),
		Atlases:   len(doc.Atlases),
		Images:    len(doc.Metadata),
		Copied:    []CopiedFile{},
	}

	if err := os.WriteFile(result.AtlasJSON, body, 0644); err != nil {
		return nil, fmt.Errorf("failed to write atlas.json: %w", err)
	}
	slog.Info("Compressed atlas JSON written", "path", result.AtlasJSON, "bytes", len(body))

	for i, page := range doc.Atlases {
		src, err := store.ImagePath(page.File)
		if err != nil {
			slog.Warn("Skipping atlas page outside atlas directory", "index", i, "file", page.File)
			result.Missing = append(result.Missing, page.File)
			continue
		}

		name := fmt.Sprintf("%d%s", i, filepath.Ext(page.File))
		if err := copyFile(src, filepath.Join(pagesDir, name)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Warn("Atlas page not found", "index", i, "path", src)
				result.Missing = append(result.Missing, page.File)
				continue
			}
			return nil, fmt.Errorf("failed to copy atlas %d: %w", i, err)
		}

		slog.Debug("Copied atlas page", "index", i, "from", page.File, "to", name)
		result.Copied = append(result.Copied, CopiedFile{Index: i, Original: page.File, New: name})
	}

	return result, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
