package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newNotifierCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notifier",
		Short: "Run the notification surface",
		Long: `Runs the notification surface, applying START, STOP, PLAY and PAUSE
commands from the configured signal bus until interrupted. If the saved
library says the notification was showing, it is shown again on startup.

Useful with the kafka transport so the surface runs apart from the API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Warn("Failed to close app", "err", err)
				}
			}()

			svc, closeSink, err := a.newNotifier(ctx)
			if err != nil {
				return err
			}
			defer closeSink()

			// Commands published while no notifier was running are gone, so
			// restore from saved state directly.
			if snap := a.library.Snapshot(); snap.NotificationActive {
				if err := svc.Start(ctx, snap.ActiveImage); err != nil {
					slog.Warn("Unable to resume notification", "err", err)
				}
			}

			slog.Info("Notifier running", "transport", a.cfg.Signal.Transport, "sink", a.cfg.Notification.Sink)
			return svc.Run(ctx, a.bus)
		},
	}
}
