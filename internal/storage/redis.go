package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisStore keeps state under prefixed keys: a string for the flag, a
// string for the active image, a set for the saved images and a list for
// their order.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	slog.Info("Connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "statbuddy"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) Load(ctx context.Context) (State, bool, error) {
	n, err := s.client.Exists(ctx,
		s.key(KeyNotificationActive),
		s.key(KeyActiveImage),
		s.key(KeySavedImages),
	).Result()
	if err != nil {
		return State{}, false, fmt.Errorf("failed to check redis keys: %w", err)
	}
	if n == 0 {
		return State{}, false, nil
	}

	var r record

	flag, err := s.client.Get(ctx, s.key(KeyNotificationActive)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return State{}, false, fmt.Errorf("failed to read %s: %w", KeyNotificationActive, err)
	default:
		r.NotificationActive, _ = strconv.ParseBool(flag)
	}

	active, err := s.client.Get(ctx, s.key(KeyActiveImage)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return State{}, false, fmt.Errorf("failed to read %s: %w", KeyActiveImage, err)
	default:
		r.ActiveImageURI = &active
	}

	r.SavedImages, err = s.client.SMembers(ctx, s.key(KeySavedImages)).Result()
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read %s: %w", KeySavedImages, err)
	}
	r.SavedImagesOrder, err = s.client.LRange(ctx, s.key(KeySavedImagesOrder), 0, -1).Result()
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read %s: %w", KeySavedImagesOrder, err)
	}

	return r.state(), true, nil
}

// Save replaces every key in one MULTI/EXEC transaction.
func (s *RedisStore) Save(ctx context.Context, state State) error {
	r := toRecord(state)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(KeyNotificationActive), strconv.FormatBool(r.NotificationActive), 0)

		if r.ActiveImageURI != nil {
			pipe.Set(ctx, s.key(KeyActiveImage), *r.ActiveImageURI, 0)
		} else {
			pipe.Del(ctx, s.key(KeyActiveImage))
		}

		pipe.Del(ctx, s.key(KeySavedImages), s.key(KeySavedImagesOrder))
		if len(r.SavedImages) > 0 {
			pipe.SAdd(ctx, s.key(KeySavedImages), toArgs(r.SavedImages)...)
			pipe.RPush(ctx, s.key(KeySavedImagesOrder), toArgs(r.SavedImagesOrder)...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save state to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
