package notification

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/null000O/StatBuddy/internal/models"
	"github.com/null000O/StatBuddy/internal/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	shown     []Notification
	cancelled int
}

func (s *recordingSink) Show(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n)
	return nil
}

func (s *recordingSink) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shown)
}

func (s *recordingSink) last() Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown[len(s.shown)-1]
}

type duckedFocus struct{}

func (duckedFocus) Ducked() bool { return true }

func imageServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.png")
	require.NoError(t, imaging.Save(imaging.New(200, 100, color.NRGBA{R: 255, A: 255}), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func newTestService(t *testing.T, focus AudioFocus) (*Service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	svc := NewService(Config{CacheDir: t.TempDir(), RefreshInterval: time.Hour}, sink, nil, nil, focus)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { svc.Stop(context.Background()) })
	return svc, sink
}

func TestStartRendersIconsOnce(t *testing.T) {
	ctx := context.Background()
	srv, hits := imageServer(t)
	svc, sink := newTestService(t, nil)
	loc := models.Locator(srv.URL + "/a.png")

	require.NoError(t, svc.Start(ctx, loc))
	svc.Wait()

	n, running := svc.Current()
	require.True(t, running)
	assert.Equal(t, loc, n.Image)
	require.NotEmpty(t, n.LargeIconPath)
	assert.FileExists(t, n.LargeIconPath)

	smallPath, ok := svc.icons.Lookup(n.SmallIcon)
	require.True(t, ok)
	small, err := imaging.Open(smallPath)
	require.NoError(t, err)
	assert.Equal(t, SmallIconSize, small.Bounds().Dx())

	large, err := imaging.Open(n.LargeIconPath)
	require.NoError(t, err)
	assert.Equal(t, 64, large.Bounds().Dx())
	assert.Equal(t, 32, large.Bounds().Dy())

	require.NoError(t, svc.Start(ctx, loc))
	svc.Wait()
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, n.LargeIconPath, sink.last().LargeIconPath)
}

func TestStartWithoutImage(t *testing.T) {
	ctx := context.Background()
	srv, _ := imageServer(t)
	svc, sink := newTestService(t, nil)

	require.NoError(t, svc.Start(ctx, models.Locator(srv.URL+"/a.png")))
	svc.Wait()
	require.NotEmpty(t, sink.last().LargeIconPath)

	require.NoError(t, svc.Start(ctx, ""))
	svc.Wait()
	n := sink.last()
	assert.Empty(t, n.LargeIconPath)
	assert.Empty(t, n.Image)
	assert.True(t, n.Ongoing)
}

func TestStartUndecodableImageStillShows(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t, nil)

	require.NoError(t, svc.Start(ctx, models.Locator(filepath.Join(t.TempDir(), "missing.png"))))
	svc.Wait()

	require.Equal(t, 1, sink.count())
	assert.Empty(t, sink.last().LargeIconPath)
	_, running := svc.Current()
	assert.True(t, running)
}

func TestNotificationFields(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t, nil)

	require.NoError(t, svc.Start(ctx, ""))
	n := sink.last()
	assert.Equal(t, "⚡ Playing", n.Title)
	assert.Equal(t, PriorityMax, n.Priority)
	assert.True(t, n.Silent)
	assert.Equal(t, CategoryCall, n.Category)
	assert.Equal(t, PlayingSpeed, n.PlaybackSpeed)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(100000*time.Second), n.When)

	require.NoError(t, svc.Handle(ctx, signal.Pause()))
	n = sink.last()
	assert.False(t, n.Playing)
	assert.Equal(t, "⚡ Paused", n.Title)
	assert.Zero(t, n.PlaybackSpeed)

	require.NoError(t, svc.Handle(ctx, signal.Play()))
	assert.True(t, sink.last().Playing)
}

func TestDuckedPlayback(t *testing.T) {
	svc, sink := newTestService(t, duckedFocus{})
	require.NoError(t, svc.Start(context.Background(), ""))

	n := sink.last()
	assert.True(t, n.Playing)
	assert.Zero(t, n.PlaybackSpeed)
	assert.Contains(t, n.Text, "(device audio playing)")
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t, nil)

	require.NoError(t, svc.Stop(ctx))
	assert.Equal(t, 0, sink.cancelled)

	require.NoError(t, svc.Start(ctx, ""))
	require.NoError(t, svc.Handle(ctx, signal.Stop()))
	assert.Equal(t, 1, sink.cancelled)
	_, running := svc.Current()
	assert.False(t, running)

	// pause while stopped only records state
	require.NoError(t, svc.Handle(ctx, signal.Pause()))
	assert.Equal(t, 1, sink.count())
}

func TestPeriodicRefresh(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(Config{CacheDir: t.TempDir(), RefreshInterval: 5 * time.Millisecond}, sink, nil, nil, nil)
	require.NoError(t, svc.Start(context.Background(), ""))

	require.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Stop(context.Background()))
	after := sink.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, sink.count())
}

func TestRunConsumesBus(t *testing.T) {
	srv, _ := imageServer(t)
	svc, sink := newTestService(t, nil)
	bus := signal.NewLocal(4)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- svc.Run(ctx, bus) }()

	require.NoError(t, bus.Publish(ctx, signal.Start(models.Locator(srv.URL+"/a.png"))))
	require.Eventually(t, func() bool {
		n, running := svc.Current()
		return running && n.LargeIconPath != ""
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
	_, running := svc.Current()
	assert.False(t, running)
	assert.Equal(t, 1, sink.cancelled)
}
