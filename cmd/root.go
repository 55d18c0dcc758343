package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/atlaserve/internal/atlascmd"
	"github.com/lehigh-university-libraries/atlaserve/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string
	var logLevel string
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "atlaserve",
		Short: "Serve compressed texture-atlas metadata and atlas page images",
		Long: `Atlaserve serves a packed set of texture atlases to scene clients.

GET /atlas.json returns the atlas manifest with image names replaced by small
integer ids, and GET /atlas/{index}.png returns the page image at that
position in the atlas list.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded

			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			return setupLogging(cfg.LogLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	getConfig := func() *config.Config { return cfg }

	// Add subcommands
	cmd.AddCommand(newServeCmd(getConfig))
	cmd.AddCommand(atlascmd.NewValidateCmd(getConfig))
	cmd.AddCommand(atlascmd.NewExportCmd(getConfig))
	cmd.AddCommand(atlascmd.NewURLsCmd(getConfig))

	return cmd
}

func setupLogging(level string) error {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "", "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}
