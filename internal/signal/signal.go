// Package signal carries commands to the notification surface, either
// in-process or through a broker so the surface can run elsewhere.
package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/null000O/StatBuddy/internal/models"
)

// Kind names a command understood by the notification surface.
type Kind string

const (
	KindStart Kind = "START"
	KindStop  Kind = "STOP"
	KindPlay  Kind = "PLAY"
	KindPause Kind = "PAUSE"
)

// Command is one directed message to the surface. A START without a
// locator clears the displayed image.
type Command struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Locator  *models.Locator `json:"locator,omitempty"`
	IssuedAt time.Time       `json:"issued_at"`
}

func newCommand(kind Kind) Command {
	return Command{ID: uuid.NewString(), Kind: kind, IssuedAt: time.Now().UTC()}
}

// Start builds a START command; an empty locator means "no image".
func Start(loc models.Locator) Command {
	cmd := newCommand(KindStart)
	if loc != "" {
		cmd.Locator = &loc
	}
	return cmd
}

func Stop() Command  { return newCommand(KindStop) }
func Play() Command  { return newCommand(KindPlay) }
func Pause() Command { return newCommand(KindPause) }

// Validate rejects unknown kinds and stray locators.
func (c Command) Validate() error {
	switch c.Kind {
	case KindStart:
		return nil
	case KindStop, KindPlay, KindPause:
		if c.Locator != nil {
			return fmt.Errorf("%s does not take a locator", c.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown command kind %q", c.Kind)
	}
}

// Handler processes one command.
type Handler func(ctx context.Context, cmd Command) error

// Publisher sends commands to the surface.
type Publisher interface {
	Publish(ctx context.Context, cmd Command) error
}

// Consumer feeds received commands to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handle Handler) error
}

// Bus is both ends of a transport.
type Bus interface {
	Publisher
	Consumer
	Close() error
}

// Config selects the transport.
type Config struct {
	Transport string      `mapstructure:"transport"`
	Kafka     KafkaConfig `mapstructure:"kafka"`
}

// Open builds the Bus named by cfg.Transport: "local" or "kafka".
func Open(cfg Config) (Bus, error) {
	switch cfg.Transport {
	case "", "local":
		return NewLocal(16), nil
	case "kafka":
		return NewKafka(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported signal transport: %s", cfg.Transport)
	}
}
