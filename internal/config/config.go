// Package config loads statbuddy settings from config.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/null000O/StatBuddy/internal/notification"
	"github.com/null000O/StatBuddy/internal/signal"
	"github.com/null000O/StatBuddy/internal/storage"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// STATBUDDY_STORAGE_BACKEND=redis.
const EnvPrefix = "STATBUDDY"

type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Library      LibraryConfig       `mapstructure:"library"`
	Storage      storage.Config      `mapstructure:"storage"`
	Signal       signal.Config       `mapstructure:"signal"`
	Notification notification.Config `mapstructure:"notification"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	UploadsDir     string        `mapstructure:"uploads_dir"`
	CropDir        string        `mapstructure:"crop_dir"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

type LibraryConfig struct {
	RequireMembership bool `mapstructure:"require_membership"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8888")
	v.SetDefault("server.uploads_dir", "uploads")
	v.SetDefault("server.crop_dir", "uploads/crops")
	v.SetDefault("server.max_upload_bytes", 10*1024*1024)
	v.SetDefault("server.shutdown_grace", 5*time.Second)

	v.SetDefault("library.require_membership", false)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "data/"+storage.DefaultPrefsFile)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "statbuddy")

	v.SetDefault("signal.transport", "local")
	v.SetDefault("signal.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("signal.kafka.topic", "statbuddy.notification")
	v.SetDefault("signal.kafka.group_id", "statbuddy-notifier")

	v.SetDefault("notification.cache_dir", "cache")
	v.SetDefault("notification.refresh_interval", notification.DefaultRefresh)
	v.SetDefault("notification.sink", "log")
	v.SetDefault("notification.app_name", "StatBuddy")
}

// Load reads configuration. An explicit path must exist; otherwise
// ./config/config.yaml and $HOME/.config/statbuddy/config.yaml are tried and
// defaults apply when neither is present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.config/statbuddy")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &c, nil
}
