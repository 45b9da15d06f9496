package signal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/null000O/StatBuddy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCommand(t *testing.T) {
	cmd := Start("file:///tmp/a.png")
	require.NotNil(t, cmd.Locator)
	assert.Equal(t, models.Locator("file:///tmp/a.png"), *cmd.Locator)
	assert.Equal(t, KindStart, cmd.Kind)
	assert.NotEmpty(t, cmd.ID)

	empty := Start("")
	assert.Nil(t, empty.Locator)
	assert.NotEqual(t, cmd.ID, empty.ID)
}

func TestValidate(t *testing.T) {
	loc := models.Locator("a")
	tests := []struct {
		name    string
		cmd     Command
		wantErr bool
	}{
		{name: "start with image", cmd: Start("a")},
		{name: "start without image", cmd: Start("")},
		{name: "stop", cmd: Stop()},
		{name: "play", cmd: Play()},
		{name: "pause", cmd: Pause()},
		{name: "stop with locator", cmd: Command{Kind: KindStop, Locator: &loc}, wantErr: true},
		{name: "unknown kind", cmd: Command{Kind: "REWIND"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocalDeliversInOrder(t *testing.T) {
	bus := NewLocal(8)
	defer bus.Close()

	ctx := context.Background()
	sent := []Command{Start("a"), Pause(), Play(), Stop()}
	for _, cmd := range sent {
		require.NoError(t, bus.Publish(ctx, cmd))
	}

	var (
		mu  sync.Mutex
		got []Kind
	)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- bus.Consume(ctx, func(_ context.Context, cmd Command) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, cmd.Kind)
			if len(got) == 2 {
				return errors.New("handler errors do not stop consumption")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(sent)
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []Kind{KindStart, KindPause, KindPlay, KindStop}, got)
}

func TestLocalClosed(t *testing.T) {
	bus := NewLocal(1)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), Stop()), ErrClosed)
	assert.NoError(t, bus.Consume(context.Background(), func(context.Context, Command) error { return nil }))
}

func TestLocalPublishRespectsContext(t *testing.T) {
	bus := NewLocal(1)
	defer bus.Close()
	require.NoError(t, bus.Publish(context.Background(), Stop()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(ctx, Stop()), context.DeadlineExceeded)
}

func TestLocalRejectsInvalid(t *testing.T) {
	bus := NewLocal(1)
	defer bus.Close()
	assert.Error(t, bus.Publish(context.Background(), Command{Kind: "REWIND"}))
}

func TestOpen(t *testing.T) {
	bus, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, bus)
	require.NoError(t, bus.Close())

	_, err = Open(Config{Transport: "kafka"})
	assert.Error(t, err, "kafka without brokers")

	k, err := Open(Config{Transport: "kafka", Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}}})
	require.NoError(t, err)
	assert.Equal(t, "statbuddy.notification", k.(*Kafka).cfg.Topic)
	assert.Equal(t, "statbuddy-notifier", k.(*Kafka).cfg.GroupID)
	require.NoError(t, k.Close())

	_, err = Open(Config{Transport: "carrier-pigeon"})
	assert.Error(t, err)
}
