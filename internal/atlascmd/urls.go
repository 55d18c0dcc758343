package atlascmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/atlaserve/internal/client"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type urlsOutput struct {
	Client client.Config `yaml:"client" json:"client"`
	URLs   client.URLs   `yaml:"urls" json:"urls"`
}

// NewURLsCmd creates the urls command
func NewURLsCmd(getConfig ConfigFunc) *cobra.Command {
	var flags storeFlags
	var baseURL string
	var atlasCount int
	var format string
	var check bool

	cmd := &cobra.Command{
		Use:   "urls",
		Short: "Print the metadata and atlas page URLs a scene client should use",
		Long: `Prints the metadata URL ({base}/atlas.json) and one page URL per atlas
({base}/atlas/{i}.png) for the configured base URL and atlas count.

The server serves as many pages as the manifest lists and does not know the
client's atlas count. Use --check to compare the two.`,
		Example: `  # Print URLs for the configured client
  atlaserve urls

  # Print URLs for a deployment and fail if the count is wrong
  atlaserve urls --base-url https://posters.example.org/ --count 12 --check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			if !cmd.Flags().Changed("base-url") {
				baseURL = cfg.Client.BaseURL
			}
			if !cmd.Flags().Changed("count") {
				atlasCount = cfg.Client.AtlasCount
			}

			var store *storage.AtlasStore
			if check {
				store = flags.store(cfg)
			}
			return executeURLs(cmd.OutOrStdout(), client.New(baseURL, atlasCount), format, store)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL the server is reachable at")
	cmd.Flags().IntVar(&atlasCount, "count", 0, "Number of atlas pages the client fetches")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format (yaml or json)")
	cmd.Flags().BoolVar(&check, "check", false, "Fail when the count differs from the manifest's atlas count")

	return cmd
}

// executeURLs prints the URL set for cfg. When store is non-nil the atlas
// count is checked against the manifest first.
func executeURLs(w io.Writer, cfg client.Config, format string, store *storage.AtlasStore) error {
	if store != nil {
		snap, err := store.Load()
		if err != nil {
			return fmt.Errorf("failed to load manifest: %w", err)
		}
		if served := len(snap.Document.Atlases); served != cfg.AtlasCount {
			slog.Warn("Client atlas count does not match manifest", "client", cfg.AtlasCount, "manifest", served)
			return fmt.Errorf("client atlas count %d does not match the %d atlases in %s", cfg.AtlasCount, served, store.ManifestPath())
		}
	}

	out := urlsOutput{Client: cfg, URLs: cfg.Resolve()}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
