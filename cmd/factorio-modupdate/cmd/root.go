package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/factorio-modupdate/internal/config"
	"github.com/oshokin/factorio-modupdate/internal/logger"
	"github.com/oshokin/factorio-modupdate/internal/service/updater"
	"github.com/oshokin/factorio-modupdate/internal/version"
)

var (
	// configPath to the updater YAML file.
	configPath string
	// modsDir overrides the mods directory.
	modsDir string
	// serverSettings overrides the server settings file.
	serverSettings string
	// assumeYes skips the confirmation prompt.
	assumeYes bool
	// logLevel is the minimum level printed.
	logLevel string

	// rootCmd checks installed mods against the portal and installs updates.
	rootCmd = &cobra.Command{
		Use:   "factorio-modupdate",
		Short: "Update Factorio server mods from the mod portal",
		Long: `Reads every mod archive in the mods directory, asks the Factorio mod portal
for the latest release of each mod and, after confirmation, replaces outdated
archives with the new releases.

Portal credentials are taken from the "username" and "token" keys of the
server settings file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				ConfigPath:         configPath,
				ModsDir:            modsDir,
				ServerSettingsFile: serverSettings,
				AssumeYes:          assumeYes,
				In:                 cmd.InOrStdin(),
				Out:                cmd.OutOrStdout(),
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the factorio-modupdate CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&modsDir, "mods-dir", "", "mods directory (overrides mods_dir)")
	flags.StringVar(&serverSettings, "settings", "", "server settings file (overrides server_settings)")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "install updates without asking")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
