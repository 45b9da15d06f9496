package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newNotifyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Turn the sticky notification on or off",
	}

	cmd.AddCommand(newNotifyStartCmd(opts))
	cmd.AddCommand(newNotifyStopCmd(opts))
	cmd.AddCommand(newNotifyStatusCmd(opts))

	return cmd
}

func newNotifyStartCmd(opts *rootOptions) *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Show the notification with the active image",
		Long: `Marks the notification as active and sends START with the active image.

With the local signal transport nothing outside this process hears the
command, so the notification is shown from here until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.controller.SetNotificationActive(ctx, true); err != nil {
					return err
				}
				fmt.Println("Notification on")

				if !foreground && !a.localTransport() {
					return nil
				}

				svc, closeSink, err := a.newNotifier(ctx)
				if err != nil {
					return err
				}
				defer closeSink()
				slog.Info("Showing notification, press Ctrl+C to stop")
				return svc.Run(ctx, a.bus)
			})
		},
	}

	cmd.Flags().BoolVar(&foreground, "foreground", false, "Run the notifier here even with a remote transport")

	return cmd
}

func newNotifyStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Remove the notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.controller.SetNotificationActive(ctx, false); err != nil {
					return err
				}
				fmt.Println("Notification off")
				return nil
			})
		},
	}
}

func newNotifyStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the notification is on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap := a.library.Snapshot()
				fmt.Printf("Notification: %s\n", onOff(snap.NotificationActive))
				if snap.HasActive() {
					fmt.Printf("Active image: %s\n", snap.ActiveImage)
				}
				return nil
			})
		},
	}
}
