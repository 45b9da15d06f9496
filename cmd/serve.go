package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/null000O/StatBuddy/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the StatBuddy HTTP API",
		Long: `Starts the StatBuddy HTTP API on the configured port.

The API manages the image library, crop sessions and the notification
toggle. With the local signal transport the notifier runs in this process
too; with kafka run "statbuddy notifier" alongside it.`,
		Example: `  # Start server on default port 8888
  statbuddy serve

  # Start server on custom port
  statbuddy serve --port 3000`,
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
			if port != "" {
				a.cfg.Server.Port = port
			}

			notifierCtx, stopNotifier := context.WithCancel(ctx)
			defer stopNotifier()
			notifierDone := make(chan struct{})
			close(notifierDone)

			if a.localTransport() {
				svc, closeSink, err := a.newNotifier(notifierCtx)
				if err != nil {
					return err
				}
				defer closeSink()

				done := make(chan struct{})
				notifierDone = done
				go func() {
					defer close(done)
					if err := svc.Run(notifierCtx, a.bus); err != nil {
						slog.Error("Notifier stopped", "err", err)
					}
				}()

				if err := a.controller.Resume(ctx); err != nil {
					slog.Warn("Unable to resume notification", "err", err)
				}
			}

			handler := handlers.New(a.controller, a.resolver, handlers.Options{
				UploadsDir:     a.cfg.Server.UploadsDir,
				CropDir:        a.cfg.Server.CropDir,
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
			})

			addr := ":" + a.cfg.Server.Port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("StatBuddy API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownGrace)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				stopNotifier()
				<-notifierDone
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				stopNotifier()
				<-notifierDone
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides server.port)")

	return cmd
}
