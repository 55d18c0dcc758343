package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/atlaserve/internal/atlas"
	"github.com/lehigh-university-libraries/atlaserve/internal/atlascmd"
	"github.com/lehigh-university-libraries/atlaserve/internal/handlers"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
	"github.com/lehigh-university-libraries/atlaserve/internal/watch"
	"github.com/spf13/cobra"
)

func newServeCmd(getConfig atlascmd.ConfigFunc) *cobra.Command {
	var port string
	var dir string
	var manifest string
	var watchManifest bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the atlas HTTP server",
		Long: `Starts the atlas server on the specified port.

The manifest is re-read whenever its modification time changes, so a new
atlas build can be dropped in place without restarting. With --watch the
cache is also dropped as soon as the file changes on disk.`,
		Example: `  # Start server on default port 8000
  atlaserve serve

  # Serve another atlas directory on a custom port
  atlaserve serve --dir ./output_atlases --port 3000 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("dir") {
				cfg.Server.AtlasDir = dir
			}
			if cmd.Flags().Changed("manifest") {
				cfg.Server.Manifest = manifest
			}
			if cmd.Flags().Changed("watch") {
				cfg.Server.Watch = watchManifest
			}

			store := storage.New(cfg.Server.AtlasDir, cfg.Server.Manifest)
			preflight(store)

			if cfg.Server.Watch {
				w, err := watch.New()
				if err != nil {
					return err
				}
				defer w.Stop()
				if err := w.Watch(store.ManifestPath(), func() {
					slog.Info("Atlas manifest changed", "path", store.ManifestPath())
					store.Invalidate()
				}); err != nil {
					return err
				}
			}

			handler := handlers.New(store, cfg.Server.CacheMaxAgeDuration())

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Atlas server available", "addr", addr, "url", "http://localhost"+addr, "manifest", store.ManifestPath())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8000", "Port to listen on")
	cmd.Flags().StringVar(&dir, "dir", "", "Atlas directory")
	cmd.Flags().StringVar(&manifest, "manifest", "", "Manifest file, relative to --dir unless absolute")
	cmd.Flags().BoolVar(&watchManifest, "watch", false, "Watch the manifest and reload as soon as it changes")

	return cmd
}

// preflight loads the manifest once so data problems show up in the log at
// startup. Nothing here stops the server; requests report the same faults.
func preflight(store *storage.AtlasStore) {
	snap, err := store.Load()
	if err != nil {
		slog.Warn("Atlas manifest not loadable yet", "path", store.ManifestPath(), "err", err)
		return
	}
	for _, fault := range atlas.Verify(snap.Document) {
		slog.Error("Atlas data integrity fault", "atlas", fault.Atlas, "image", fault.Name)
	}
}
