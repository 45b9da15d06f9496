package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server: STATBUDDY_TEST_REDIS=localhost:6379 go test ./...
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("STATBUDDY_TEST_REDIS")
	if addr == "" {
		t.Skip("STATBUDDY_TEST_REDIS not set")
	}
	ctx := context.Background()

	client, err := NewRedisClient(ctx, RedisConfig{Addr: addr})
	require.NoError(t, err)

	prefix := "statbuddy-test-" + uuid.NewString()
	s := NewRedisStore(client, prefix)
	defer func() {
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		s.Close()
	}()

	_, found, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	want := State{
		SavedImages:        []string{"img://b", "img://a", "img://c"},
		ActiveImage:        "img://a",
		NotificationActive: true,
	}
	require.NoError(t, s.Save(ctx, want))

	got, found, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	members, err := client.SMembers(ctx, prefix+":"+KeySavedImages).Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, want.SavedImages, members)

	cleared := State{SavedImages: []string{"img://c"}}
	require.NoError(t, s.Save(ctx, cleared))
	got, _, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cleared, got)
}
