package atlascmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/atlaserve/internal/staticgen"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command
func NewExportCmd(getConfig ConfigFunc) *cobra.Command {
	var flags storeFlags
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a static copy of the served atlas data",
		Long: `Writes atlas.json exactly as GET /atlas.json returns it and copies every
atlas page to atlas/{index}{ext}, so the output directory can be hosted on
any static file host.

Pages whose file is missing are skipped with a warning.`,
		Example: `  # Export to ./output_static
  atlaserve export

  # Export another build to a docs folder
  atlaserve export --dir ./build/output_atlases --out ./docs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				return fmt.Errorf("--out is required")
			}
			return executeExport(cmd.OutOrStdout(), flags.store(getConfig()), outputDir)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputDir, "out", "o", "output_static", "Output directory")

	return cmd
}

func executeExport(w io.Writer, store *storage.AtlasStore, outputDir string) error {
	result, err := staticgen.Generate(store, outputDir)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintf(w, "Static atlas data written to %s\n", result.OutputDir)
	fmt.Fprintf(w, "  atlas.json: %s\n", result.AtlasJSON)
	fmt.Fprintf(w, "  pages copied: %d\n", len(result.Copied))
	fmt.Fprintf(w, "  atlases: %d\n", result.Atlases)
	fmt.Fprintf(w, "  images in mapping: %d\n", result.Images)
	if len(result.Missing) > 0 {
		fmt.Fprintf(w, "  missing pages: %d\n", len(result.Missing))
	}
	return nil
}
