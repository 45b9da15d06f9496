// Package notification keeps the active image on screen as a sticky,
// high-priority notification and refreshes it on a timer.
package notification

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/null000O/StatBuddy/internal/images"
	"github.com/null000O/StatBuddy/internal/models"
	"github.com/null000O/StatBuddy/internal/signal"
)

const (
	// WhenOffset pushes the notification timestamp into the future so the
	// shade keeps sorting it first.
	WhenOffset      = 100000000 * time.Millisecond
	PlayingSpeed    = float32(0.01)
	DefaultRefresh  = 15 * time.Second
	CategoryCall    = "call"
	PriorityMax     = 2
	iconTaskKey     = "icon"
	defaultAppTitle = "StatBuddy"
)

// Notification is the rendered state handed to a Sink.
type Notification struct {
	Title         string
	Text          string
	SubText       string
	Image         models.Locator
	LargeIconPath string
	SmallIcon     IconID
	Priority      int
	Ongoing       bool
	Silent        bool
	Category      string
	When          time.Time
	Playing       bool
	PlaybackSpeed float32
	Ducked        bool
}

// AudioFocus reports whether another application is playing audio.
type AudioFocus interface {
	Ducked() bool
}

// NoFocus never reports other audio.
type NoFocus struct{}

func (NoFocus) Ducked() bool { return false }

// Config for the notification surface.
type Config struct {
	CacheDir        string        `mapstructure:"cache_dir"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Sink            string        `mapstructure:"sink"`
	AppName         string        `mapstructure:"app_name"`
}

// Service owns the notification. Commands are applied in the order they
// arrive; icon decoding runs in the background and a newer START discards
// an older decode.
type Service struct {
	cfg     Config
	sink    Sink
	decoder *images.Decoder
	icons   *IconRegistry
	focus   AudioFocus
	tasks   *images.Tasks[Icons]
	now     func() time.Time

	mu          sync.Mutex
	running     bool
	locator     models.Locator
	cached      *Icons
	playing     bool
	current     Notification
	stopRefresh context.CancelFunc
	refreshDone chan struct{}
}

func NewService(cfg Config, sink Sink, decoder *images.Decoder, icons *IconRegistry, focus AudioFocus) *Service {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefresh
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "statbuddy")
	}
	if cfg.AppName == "" {
		cfg.AppName = defaultAppTitle
	}
	if sink == nil {
		sink = LogSink{}
	}
	if decoder == nil {
		decoder = images.NewDecoder(nil)
	}
	if icons == nil {
		icons = NewIconRegistry()
	}
	if focus == nil {
		focus = NoFocus{}
	}
	return &Service{
		cfg:     cfg,
		sink:    sink,
		decoder: decoder,
		icons:   icons,
		focus:   focus,
		tasks:   images.NewTasks[Icons](),
		now:     time.Now,
	}
}

// Handle applies one bus command.
func (s *Service) Handle(ctx context.Context, cmd signal.Command) error {
	slog.Debug("Notification command", "id", cmd.ID, "kind", cmd.Kind)
	switch cmd.Kind {
	case signal.KindStart:
		var loc models.Locator
		if cmd.Locator != nil {
			loc = *cmd.Locator
		}
		return s.Start(ctx, loc)
	case signal.KindStop:
		return s.Stop(ctx)
	case signal.KindPlay:
		return s.setPlaying(ctx, true)
	case signal.KindPause:
		return s.setPlaying(ctx, false)
	default:
		return fmt.Errorf("unknown command kind %q", cmd.Kind)
	}
}

// Start shows the notification for loc, or with no image when loc is empty.
// Starting again with the same image reuses the rendered icons.
func (s *Service) Start(ctx context.Context, loc models.Locator) error {
	s.mu.Lock()
	s.running = true
	s.playing = true

	_, decoding := s.tasks.Current(iconTaskKey)
	needDecode := false
	switch {
	case loc == "":
		s.tasks.Cancel(iconTaskKey)
		s.dropIconsLocked()
	case loc == s.locator && (s.cached != nil || decoding):
	default:
		s.dropIconsLocked()
		needDecode = true
	}
	s.locator = loc
	s.startRefreshLocked()
	err := s.showLocked(ctx)
	s.mu.Unlock()

	if needDecode {
		s.tasks.Start(context.WithoutCancel(ctx), iconTaskKey, func(ctx context.Context) (Icons, error) {
			img, err := s.decoder.Decode(ctx, loc)
			if err != nil {
				return Icons{}, err
			}
			return renderIcons(img, s.cfg.CacheDir, iconName(loc), s.icons)
		}, func(res images.Result[Icons]) {
			s.iconsReady(loc, res)
		})
	}
	return err
}

func (s *Service) iconsReady(loc models.Locator, res images.Result[Icons]) {
	if res.Err != nil {
		slog.Error("Image loading error", "image", loc, "request_id", res.RequestID, "err", res.Err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.locator != loc {
		s.icons.Forget(res.Value.SmallID)
		return
	}
	icons := res.Value
	s.cached = &icons
	if err := s.showLocked(context.Background()); err != nil {
		slog.Warn("Failed to update notification", "err", err)
	}
}

// Stop removes the notification and releases the cached icons.
func (s *Service) Stop(ctx context.Context) error {
	s.tasks.Cancel(iconTaskKey)

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.locator = ""
	s.dropIconsLocked()
	s.current = Notification{}
	stop, done := s.stopRefresh, s.refreshDone
	s.stopRefresh, s.refreshDone = nil, nil
	s.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	return s.sink.Cancel(ctx)
}

func (s *Service) setPlaying(ctx context.Context, playing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
	if !s.running {
		return nil
	}
	return s.showLocked(ctx)
}

// Current returns the last notification shown and whether one is up.
func (s *Service) Current() (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.running
}

// Run consumes commands until ctx is done, then removes the notification.
// Button presses from sinks that report them are applied too.
func (s *Service) Run(ctx context.Context, consumer signal.Consumer) error {
	if src, ok := s.sink.(ActionSource); ok {
		actions, err := src.Actions(ctx)
		if err != nil {
			slog.Warn("Notification actions unavailable", "err", err)
		} else {
			go s.watchActions(ctx, actions)
		}
	}

	err := consumer.Consume(ctx, s.Handle)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if stopErr := s.Stop(stopCtx); stopErr != nil {
		slog.Warn("Failed to remove notification", "err", stopErr)
	}
	s.tasks.Wait()
	return err
}

func (s *Service) watchActions(ctx context.Context, actions <-chan string) {
	for key := range actions {
		var err error
		switch key {
		case "play":
			err = s.setPlaying(ctx, true)
		case "pause":
			err = s.setPlaying(ctx, false)
		default:
			slog.Debug("Ignoring notification action", "action", key)
		}
		if err != nil {
			slog.Warn("Notification action failed", "action", key, "err", err)
		}
	}
}

// Wait blocks until background icon work has finished.
func (s *Service) Wait() {
	s.tasks.Wait()
}

func (s *Service) build() Notification {
	ducked := s.focus.Ducked()
	n := Notification{
		Title:    "⚡ Paused",
		Text:     s.cfg.AppName + " running",
		SubText:  "! " + s.cfg.AppName + " notification",
		Image:    s.locator,
		Priority: PriorityMax,
		Ongoing:  true,
		Silent:   true,
		Category: CategoryCall,
		When:     s.now().Add(WhenOffset),
		Playing:  s.playing,
		Ducked:   ducked,
	}
	if s.playing {
		n.Title = "⚡ Playing"
		if !ducked {
			n.PlaybackSpeed = PlayingSpeed
		}
	}
	if ducked {
		n.Text += " (device audio playing)"
	}
	if s.cached != nil {
		n.LargeIconPath = s.cached.LargePath
		n.SmallIcon = s.cached.SmallID
	}
	return n
}

func (s *Service) showLocked(ctx context.Context) error {
	n := s.build()
	if err := s.sink.Show(ctx, n); err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}
	s.current = n
	return nil
}

func (s *Service) dropIconsLocked() {
	if s.cached == nil {
		return
	}
	s.icons.Forget(s.cached.SmallID)
	s.cached = nil
}

// startRefreshLocked starts the periodic refresh unless it is running.
func (s *Service) startRefreshLocked() {
	if s.stopRefresh != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.stopRefresh, s.refreshDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.running {
					if err := s.showLocked(ctx); err != nil {
						slog.Error("Periodic update failed", "err", err)
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}

func iconName(loc models.Locator) string {
	h := fnv.New64a()
	h.Write([]byte(loc))
	return fmt.Sprintf("%016x", h.Sum64())
}
