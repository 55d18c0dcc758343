// Package atlascmd holds the offline subcommands that work on an atlas
// directory without starting the server.
package atlascmd

import (
	"github.com/lehigh-university-libraries/atlaserve/internal/config"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
	"github.com/spf13/cobra"
)

// ConfigFunc returns the configuration resolved by the root command.
type ConfigFunc func() *config.Config

// storeFlags lets a command point at a different atlas directory or
// manifest than the configured one.
type storeFlags struct {
	dir      string
	manifest string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "Atlas directory (defaults to the configured atlas_dir)")
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "Manifest file, relative to --dir unless absolute (defaults to the configured manifest)")
}

func (f *storeFlags) store(cfg *config.Config) *storage.AtlasStore {
	dir, manifest := cfg.Server.AtlasDir, cfg.Server.Manifest
	if f.dir != "" {
		dir = f.dir
	}
	if f.manifest != "" {
		manifest = f.manifest
	}
	return storage.New(dir, manifest)
}
