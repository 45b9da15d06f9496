package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the broker transport.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// Kafka publishes commands to a topic and consumes them with a consumer
// group. All commands share one message key so they land on a single
// partition and keep their order.
type Kafka struct {
	cfg    KafkaConfig
	writer *kafka.Writer
}

const commandKey = "notification"

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("signal.kafka.brokers is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = "statbuddy.notification"
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "statbuddy-notifier"
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Kafka{cfg: cfg, writer: writer}, nil
}

func (k *Kafka) Publish(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(commandKey),
		Value: value,
		Time:  cmd.IssuedAt,
	}); err != nil {
		return fmt.Errorf("failed to publish %s command: %w", cmd.Kind, err)
	}
	slog.Debug("Command published", "id", cmd.ID, "kind", cmd.Kind, "topic", k.cfg.Topic)
	return nil
}

// Consume reads until ctx is cancelled. Malformed messages are skipped.
func (k *Kafka) Consume(ctx context.Context, handle Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.cfg.Brokers,
		Topic:          k.cfg.Topic,
		GroupID:        k.cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})
	defer reader.Close()

	slog.Info("Consuming notification commands", "brokers", k.cfg.Brokers, "topic", k.cfg.Topic, "group", k.cfg.GroupID)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read command: %w", err)
		}

		var cmd Command
		if err := json.Unmarshal(msg.Value, &cmd); err != nil {
			slog.Warn("Skipping malformed command", "partition", msg.Partition, "offset", msg.Offset, "err", err)
			continue
		}
		if err := cmd.Validate(); err != nil {
			slog.Warn("Skipping invalid command", "offset", msg.Offset, "err", err)
			continue
		}
		if err := handle(ctx, cmd); err != nil {
			slog.Error("Command failed", "id", cmd.ID, "kind", cmd.Kind, "err", err)
		}
	}
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
