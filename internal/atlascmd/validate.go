package atlascmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/lehigh-university-libraries/atlaserve/internal/atlas"
	"github.com/lehigh-university-libraries/atlaserve/internal/storage"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// ValidationReport lists everything wrong with an atlas directory.
type ValidationReport struct {
	ManifestPath string
	Images       int
	Atlases      int
	Faults       []*atlas.IntegrityError
	MissingPages []MissingPage
}

// MissingPage is an atlas whose page file cannot be opened.
type MissingPage struct {
	Index int
	File  string
}

// OK reports whether the manifest can be served in full.
func (r *ValidationReport) OK() bool {
	return len(r.Faults) == 0 && len(r.MissingPages) == 0
}

// NewValidateCmd creates the validate command
func NewValidateCmd(getConfig ConfigFunc) *cobra.Command {
	var flags storeFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an atlas manifest for integrity faults and missing pages",
		Long: `Loads the atlas manifest the server would serve and checks that every
uv entry refers to an image present in the metadata table and that every
atlas page file exists.

Exits non-zero when anything would make a request fail.`,
		Example: `  # Validate the configured atlas directory
  atlaserve validate

  # Validate another build
  atlaserve validate --dir ./build/output_atlases`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeValidate(cmd.OutOrStdout(), flags.store(getConfig()))
		},
	}

	flags.register(cmd)
	return cmd
}

// Validate checks the manifest in store.
func Validate(store *storage.AtlasStore) (*ValidationReport, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, err
	}
	doc := snap.Document

	report := &ValidationReport{
		ManifestPath: store.ManifestPath(),
		Images:       len(doc.Metadata),
		Atlases:      len(doc.Atlases),
		Faults:       atlas.Verify(doc),
	}

	for i, page := range doc.Atlases {
		f, _, err := store.OpenImage(snap, i)
		if err != nil {
			report.MissingPages = append(report.MissingPages, MissingPage{Index: i, File: page.File})
			continue
		}
		f.Close()
	}

	return report, nil
}

func executeValidate(w io.Writer, store *storage.AtlasStore) error {
	report, err := Validate(store)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	fmt.Fprintln(w, titleStyle.Render("Atlas manifest: "+report.ManifestPath))
	fmt.Fprintf(w, "Images:  %d\n", report.Images)
	fmt.Fprintf(w, "Atlases: %d\n", report.Atlases)
	fmt.Fprintln(w)

	for _, fault := range report.Faults {
		fmt.Fprintln(w, errStyle.Render("✗ ")+fault.Error())
	}
	for _, page := range report.MissingPages {
		fmt.Fprintln(w, warnStyle.Render("! ")+fmt.Sprintf("atlas %d: page %q not found", page.Index, page.File))
	}

	if report.OK() {
		fmt.Fprintln(w, okStyle.Render("✓ manifest is consistent"))
		return nil
	}

	return fmt.Errorf("%d integrity faults, %d missing pages", len(report.Faults), len(report.MissingPages))
}
