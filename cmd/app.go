package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/null000O/StatBuddy/internal/config"
	"github.com/null000O/StatBuddy/internal/images"
	"github.com/null000O/StatBuddy/internal/library"
	"github.com/null000O/StatBuddy/internal/notification"
	"github.com/null000O/StatBuddy/internal/signal"
	"github.com/null000O/StatBuddy/internal/storage"
)

// app is the wiring shared by every subcommand: config, the persisted
// library, the signal bus and the controller tying them together.
type app struct {
	cfg        *config.Config
	store      storage.Store
	library    *library.Library
	bus        signal.Bus
	controller *library.Controller
	resolver   *images.Resolver
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	bus, err := signal.Open(cfg.Signal)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open signal bus: %w", err)
	}

	lib := library.New(ctx, store, library.Options{RequireMembership: cfg.Library.RequireMembership})
	slog.Debug("App ready", "storage", cfg.Storage.Backend, "transport", cfg.Signal.Transport)

	return &app{
		cfg:        cfg,
		store:      store,
		library:    lib,
		bus:        bus,
		controller: library.NewController(lib, bus),
		resolver:   images.NewResolver(),
	}, nil
}

// localTransport reports whether the notifier has to run in this process to
// see published commands.
func (a *app) localTransport() bool {
	return a.cfg.Signal.Transport == "" || a.cfg.Signal.Transport == "local"
}

// newNotifier builds the notification service with the configured sink. The
// returned close func releases the sink.
func (a *app) newNotifier(ctx context.Context) (*notification.Service, func(), error) {
	icons := notification.NewIconRegistry()

	var (
		sink    notification.Sink
		closeFn = func() {}
	)
	switch a.cfg.Notification.Sink {
	case "", "log":
		sink = notification.LogSink{}
	case "dbus":
		dbusSink, err := notification.NewDBusSink(ctx, a.cfg.Notification.AppName, icons)
		if err != nil {
			return nil, nil, err
		}
		sink = dbusSink
		closeFn = func() {
			if err := dbusSink.Close(); err != nil {
				slog.Warn("Failed to close dbus connection", "err", err)
			}
		}
	default:
		return nil, nil, fmt.Errorf("unsupported notification sink: %s", a.cfg.Notification.Sink)
	}

	svc := notification.NewService(a.cfg.Notification, sink, images.NewDecoder(a.resolver), icons, nil)
	return svc, closeFn, nil
}

func (a *app) Close() error {
	return errors.Join(a.bus.Close(), a.store.Close())
}
