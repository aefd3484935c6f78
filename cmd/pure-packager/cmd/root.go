package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mudita-community/pure-packager/internal/logger"
	"github.com/mudita-community/pure-packager/internal/service/assembler"
	"github.com/mudita-community/pure-packager/internal/version"
)

var (
	// options collects every flag of the assembly run.
	options assembler.Options

	// logLevel is the textual log level from the command line.
	logLevel string

	// rootCmd represents the base command assembling an update package.
	rootCmd = &cobra.Command{
		Use:   "pure-packager",
		Short: "Assemble a firmware update package",
		Long: `Assemble a firmware update package containing the updater binary, an
optional boot image and a version.json manifest, bundled as update.tar.

Without flags the latest updater release is downloaded from the release
repository and packaged alone.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			} else {
				logger.Warnf(ctx, "Unknown log level %q, keeping %s", logLevel, logger.Level())
			}

			_, err := assembler.Run(ctx, &options)

			return err
		},
	}
)

// Execute runs the pure-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&options.ConfigPath, "config", "c", "", "path to release source settings file")
	flags.StringVarP(&options.UpdaterPath, "updater", "u", "", "local updater binary to package instead of the latest release")
	flags.StringVarP(&options.BootPath, "boot", "b", "", "local boot image to include in the package")
	flags.StringVar(&options.UpdaterVersion, "updater-version", "", "version recorded for the updater binary")
	flags.StringVar(&options.BootVersion, "boot-version", "", "version recorded for the boot image")
	flags.StringVar(&options.UpdaterChecksum, "updater-checksum", "", "checksum recorded for the updater binary instead of computing it")
	flags.StringVarP(&options.OutputName, "output", "o", assembler.DefaultOutputName, "name of the produced archive")
	flags.StringVarP(&options.OutputDir, "workdir", "w", "", "directory where the archive is published (default: current directory)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error or fatal")
}
