package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Sink puts a notification in front of the user.
type Sink interface {
	Show(ctx context.Context, n Notification) error
	Cancel(ctx context.Context) error
}

// ActionSource is implemented by sinks that report button presses.
// Actions are "play" or "pause".
type ActionSource interface {
	Actions(ctx context.Context) (<-chan string, error)
}

// LogSink writes notifications to the log. It is the default when no
// desktop session is available.
type LogSink struct{}

func (LogSink) Show(ctx context.Context, n Notification) error {
	slog.Info("Notification",
		"title", n.Title,
		"text", n.Text,
		"image", n.Image,
		"large_icon", n.LargeIconPath,
		"small_icon", n.SmallIcon,
		"playing", n.Playing,
		"speed", n.PlaybackSpeed,
		"when", n.When)
	return nil
}

func (LogSink) Cancel(ctx context.Context) error {
	slog.Info("Notification removed")
	return nil
}

const (
	dbusDest  = "org.freedesktop.Notifications"
	dbusPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	dbusIface = "org.freedesktop.Notifications"

	urgencyCritical = byte(2)
)

// DBusSink shows the notification through the freedesktop notification
// service on the session bus, replacing it in place on every update.
type DBusSink struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	appName string
	icons   *IconRegistry

	mu sync.Mutex
	id uint32
}

func NewDBusSink(ctx context.Context, appName string, icons *IconRegistry) (*DBusSink, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("dbus connect: %w", err)
	}
	return &DBusSink{
		conn:    conn,
		obj:     conn.Object(dbusDest, dbusPath),
		appName: appName,
		icons:   icons,
	}, nil
}

func (s *DBusSink) Show(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hints := map[string]dbus.Variant{
		"urgency":        dbus.MakeVariant(urgencyCritical),
		"resident":       dbus.MakeVariant(true),
		"suppress-sound": dbus.MakeVariant(true),
		"category":       dbus.MakeVariant(n.Category),
	}
	if n.LargeIconPath != "" {
		hints["image-path"] = dbus.MakeVariant("file://" + n.LargeIconPath)
	}

	appIcon := ""
	if path, ok := s.icons.Lookup(n.SmallIcon); ok {
		appIcon = path
	}

	actions := []string{"pause", "Pause"}
	if !n.Playing {
		actions = []string{"play", "Play"}
	}

	body := n.Text
	if n.SubText != "" {
		body = strings.Join([]string{n.Text, n.SubText}, "\n")
	}

	call := s.obj.CallWithContext(ctx, dbusIface+".Notify", 0,
		s.appName, s.id, appIcon, n.Title, body, actions, hints, int32(0))
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	s.id = id
	return nil
}

func (s *DBusSink) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == 0 {
		return nil
	}
	call := s.obj.CallWithContext(ctx, dbusIface+".CloseNotification", 0, s.id)
	s.id = 0
	return call.Err
}

// Actions subscribes to ActionInvoked for the current notification.
func (s *DBusSink) Actions(ctx context.Context) (<-chan string, error) {
	rule := fmt.Sprintf("type='signal',interface='%s',member='ActionInvoked'", dbusIface)
	if err := s.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
		return nil, fmt.Errorf("dbus add match: %w", err)
	}

	sigc := make(chan *dbus.Signal, 8)
	s.conn.Signal(sigc)

	out := make(chan string)
	go func() {
		defer close(out)
		defer s.conn.RemoveSignal(sigc)
		defer s.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule)

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigc:
				if !ok {
					return
				}
				if sig.Name != dbusIface+".ActionInvoked" || len(sig.Body) < 2 {
					continue
				}
				id, _ := sig.Body[0].(uint32)
				key, _ := sig.Body[1].(string)

				s.mu.Lock()
				mine := id != 0 && id == s.id
				s.mu.Unlock()
				if !mine {
					continue
				}
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *DBusSink) Close() error {
	return s.conn.Close()
}
