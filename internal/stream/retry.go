package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DeadLetter is what a message that could not be processed leaves behind
type DeadLetter struct {
	MessageID string                 `json:"messageId"`
	Fields    map[string]interface{} `json:"fields"`
	Error     string                 `json:"error"`
	Attempts  int                    `json:"attempts"`
	FailedAt  time.Time              `json:"failedAt"`
}

type RetryHandler struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	deadLetter func(ctx context.Context, entry DeadLetter) error
}

// NewRetryHandler retries with exponential backoff and pushes exhausted messages onto the deadLetterKey list
func NewRetryHandler(client redis.Cmdable, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
		deadLetter: func(ctx context.Context, entry DeadLetter) error {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			return client.RPush(ctx, deadLetterKey, data).Err()
		},
	}
}

// RetryWithBackoff runs fn until it succeeds or the retries run out.
// Invalid input is not retried. A message that keeps failing goes to the dead letter list
// and the last error is returned.
func (h *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var err error
	attempts := 0
	delay := h.baseDelay

	for attempts < h.maxRetries {
		attempts++
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, apperr.ErrInvalidArgument) || attempts == h.maxRetries {
			break
		}

		log.Warn().
			Err(err).
			Str("message_id", messageID).
			Int("attempt", attempts).
			Dur("backoff", delay).
			Msg("Processing failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, h.maxDelay)
	}

	entry := DeadLetter{
		MessageID: messageID,
		Fields:    fields,
		Error:     err.Error(),
		Attempts:  attempts,
		FailedAt:  time.Now().UTC(),
	}
	if dlErr := h.deadLetter(context.WithoutCancel(ctx), entry); dlErr != nil {
		log.Error().Err(dlErr).Str("message_id", messageID).Msg("Failed to push message to dead letter queue")
		return fmt.Errorf("processing failed: %w (dead letter push failed: %v)", err, dlErr)
	}

	log.Error().
		Err(err).
		Str("message_id", messageID).
		Int("attempts", attempts).
		Msg("Message moved to dead letter queue")
	return err
}
