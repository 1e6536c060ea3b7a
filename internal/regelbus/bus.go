package regelbus

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openytelse/regelport/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("regelbus",
	fx.Provide(NewClient),
	fx.Provide(NewProducer),
	fx.Provide(NewConsumer),
)

// NewClient builds the process-wide redis handle and ties it to the fx
// lifecycle.
func NewClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("closing bus client")
			return client.Close()
		},
	})

	return client
}

// Message is one delivery off a stream.
type Message struct {
	ID   string
	Key  string
	Body []byte
}

// Handler processes one message. Errors are the handler's to log; the
// consumer acks regardless and relies on the engine re-emitting fuller
// messages, so a bad payload can never wedge the stream.
type Handler func(ctx context.Context, msg Message)

// Producer publishes messages onto streams.
type Producer struct {
	client *redis.Client
	log    *zap.Logger
}

func NewProducer(client *redis.Client, log *zap.Logger) *Producer {
	return &Producer{
		client: client,
		log:    log.Named("regelbus").With(zap.String("component", "producer")),
	}
}

// Publish appends a keyed message to the topic stream.
func (p *Producer) Publish(ctx context.Context, topic, key string, body []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{"key": key, "body": body},
	}).Err()
	if err != nil {
		return err
	}
	p.log.Debug("published", zap.String("topic", topic), zap.String("key", key))
	return nil
}

// Ping reports bus connectivity, used by the health aggregator.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Consumer reads topic streams through a consumer group so deliveries are
// at-least-once and survive restarts.
type Consumer struct {
	client   *redis.Client
	group    string
	consumer string
	log      *zap.Logger
}

func NewConsumer(client *redis.Client, cfg config.Config, log *zap.Logger) *Consumer {
	return &Consumer{
		client:   client,
		group:    cfg.ConsumerGroup,
		consumer: cfg.ConsumerGroup + "-" + uuid.NewString()[:8],
		log:      log.Named("regelbus").With(zap.String("component", "consumer")),
	}
}

// Run consumes the topic until ctx is canceled. Intended to run on its own
// goroutine owned by an fx lifecycle hook.
func (c *Consumer) Run(ctx context.Context, topic string, handle Handler) {
	if err := c.ensureGroup(ctx, topic); err != nil {
		c.log.Error("create consumer group", zap.String("topic", topic), zap.Error(err))
		return
	}

	log := c.log.With(zap.String("topic", topic), zap.String("group", c.group))
	log.Info("consuming")

	for {
		if ctx.Err() != nil {
			log.Info("consumer stopped")
			return
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{topic, ">"},
			Count:    32,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Warn("read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				handle(ctx, toMessage(entry))
				if err := c.client.XAck(ctx, topic, c.group, entry.ID).Err(); err != nil {
					log.Warn("ack failed", zap.String("id", entry.ID), zap.Error(err))
				}
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context, topic string) error {
	err := c.client.XGroupCreateMkStream(ctx, topic, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func toMessage(entry redis.XMessage) Message {
	msg := Message{ID: entry.ID}
	if key, ok := entry.Values["key"].(string); ok {
		msg.Key = key
	}
	switch body := entry.Values["body"].(type) {
	case string:
		msg.Body = []byte(body)
	case []byte:
		msg.Body = body
	}
	return msg
}
