package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags every subcommand sees.
type rootOptions struct {
	configPath string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "statbuddy",
		Short: "Keep a sticky notification with your chosen image on screen",
		Long: `StatBuddy keeps a library of images, lets you crop them to squares and
shows the active one in a persistent notification.

Run "statbuddy serve" for the HTTP API with the notifier in-process, or run
"statbuddy notifier" separately when the kafka transport is configured.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logLevel := slog.LevelInfo
			if opts.verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default ./config/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newNotifierCmd(opts))
	cmd.AddCommand(newLibraryCmd(opts))
	cmd.AddCommand(newNotifyCmd(opts))
	cmd.AddCommand(newCropCmd(opts))

	return cmd
}
