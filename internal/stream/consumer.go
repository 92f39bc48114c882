package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RishiKendai/labscan/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Processor handles one parsed ingest message
type Processor interface {
	ProcessSubmission(ctx context.Context, msg *models.IngestMessage) error
}

type ConsumerConfig struct {
	StreamKey     string
	ConsumerGroup string
	ConsumerName  string
	// Retention is how long entries stay in the stream before they are trimmed
	Retention time.Duration
}

// Consumer reads submission files from a Redis stream through a consumer group.
// Pending entries idle for a minute are reclaimed and entries older than the retention are trimmed.
type Consumer struct {
	client              *redis.Client
	cfg                 ConsumerConfig
	processor           Processor
	retryHandler        *RetryHandler
	pelRecoveryInterval time.Duration
	minIdle             time.Duration
	cleanupInterval     time.Duration
	lastPELCheck        time.Time
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig, processor Processor, retryHandler *RetryHandler) *Consumer {
	return &Consumer{
		client:              client,
		cfg:                 cfg,
		processor:           processor,
		retryHandler:        retryHandler,
		pelRecoveryInterval: 30 * time.Second,
		minIdle:             time.Minute,
		cleanupInterval:     time.Hour,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.createConsumerGroup(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create consumer group, may be already exists")
	}

	// entries a crashed consumer left behind
	log.Info().Msg("Recovering pending stream entries on startup")
	if err := c.recoverPending(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to recover pending entries on startup")
	}
	c.lastPELCheck = time.Now()

	go c.runCleanupPeriodically(ctx)
	log.Info().
		Str("stream", c.cfg.StreamKey).
		Str("consumer", c.cfg.ConsumerName).
		Dur("cleanup_interval", c.cleanupInterval).
		Dur("retention", c.cfg.Retention).
		Msg("Ingest consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consume(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Error consuming messages")
				time.Sleep(time.Second)
			}
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context) error {
	// MKSTREAM will create the stream if it doesn't exist
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.StreamKey, c.cfg.ConsumerGroup, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			log.Debug().Str("group", c.cfg.ConsumerGroup).Msg("Consumer group already exists")
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.cfg.ConsumerGroup).
		Str("stream", c.cfg.StreamKey).
		Msg("Created new consumer group (will only read new messages)")
	return nil
}

// recoverPending claims entries idle longer than minIdle from any consumer of the group and processes them
func (c *Consumer) recoverPending(ctx context.Context) error {
	start := "0-0"
	for {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.StreamKey,
			Group:    c.cfg.ConsumerGroup,
			Consumer: c.cfg.ConsumerName,
			MinIdle:  c.minIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to claim pending entries: %w", err)
		}

		if len(msgs) > 0 {
			log.Info().Int("claimed", len(msgs)).Msg("Claimed idle pending entries, processing")
		}
		for _, msg := range msgs {
			if err := c.processMessage(ctx, msg); err != nil {
				log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to process claimed entry")
			}
		}

		if next == "0-0" || next == "" {
			return nil
		}
		start = next
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	if time.Since(c.lastPELCheck) > c.pelRecoveryInterval {
		if err := c.recoverPending(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to recover pending entries")
		}
		c.lastPELCheck = time.Now()
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.ConsumerGroup,
		Consumer: c.cfg.ConsumerName,
		Streams:  []string{c.cfg.StreamKey, ">"},
		Count:    10,
		Block:    time.Second,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		if stream.Stream != c.cfg.StreamKey {
			continue
		}
		for _, msg := range stream.Messages {
			// failures were already retried and dead-lettered
			if err := c.processMessage(ctx, msg); err != nil {
				log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to process message")
			}
		}
	}
	return nil
}

// processMessage stores one entry and acknowledges it unless the context ended first
func (c *Consumer) processMessage(ctx context.Context, msg redis.XMessage) error {
	fields := make(map[string]string, len(msg.Values))
	dead := make(map[string]interface{}, len(msg.Values))
	for key, val := range msg.Values {
		if value, ok := val.(string); ok {
			fields[key] = value
			if key != "content" {
				dead[key] = value
			}
		}
	}

	submission, err := ParseSubmission(&StreamMessage{ID: msg.ID, Fields: fields})
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to parse submission message")
		// unparseable entries would fail forever
		_ = c.acknowledge(ctx, msg.ID)
		return err
	}

	err = c.retryHandler.RetryWithBackoff(ctx, func() error {
		return c.processor.ProcessSubmission(ctx, submission)
	}, msg.ID, dead)
	if ctx.Err() != nil {
		// leave it pending for the next consumer
		return ctx.Err()
	}
	if ackErr := c.acknowledge(ctx, msg.ID); ackErr != nil && err == nil {
		return ackErr
	}
	return err
}

// trimOldEntries removes entries older than the retention
func (c *Consumer) trimOldEntries(ctx context.Context) error {
	cutoff := time.Now().Add(-c.cfg.Retention)
	minID := fmt.Sprintf("%d-0", cutoff.UnixMilli())

	trimmed, err := c.client.XTrimMinID(ctx, c.cfg.StreamKey, minID).Result()
	if err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}
	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Dur("retention", c.cfg.Retention).
			Str("cutoff_time", cutoff.Format(time.RFC3339)).
			Msg("Cleaned up old messages from stream")
	}
	return nil
}

func (c *Consumer) runCleanupPeriodically(ctx context.Context) {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	if err := c.trimOldEntries(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to run initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Cleanup goroutine shutting down")
			return
		case <-ticker.C:
			if err := c.trimOldEntries(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old messages")
			}
		}
	}
}

func (c *Consumer) acknowledge(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.cfg.StreamKey, c.cfg.ConsumerGroup, messageID).Err(); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to acknowledge message")
		return err
	}
	log.Debug().Str("message_id", messageID).Msg("Message acknowledged")
	return nil
}
