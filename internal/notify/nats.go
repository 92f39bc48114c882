// Package notify announces committed duplicate check runs.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RishiKendai/labscan/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const RunCompletedSubject = "duplicate_check.completed"

// RunCompletedEvent is published once a run is committed
type RunCompletedEvent struct {
	LabID           string    `json:"labId"`
	RunID           string    `json:"runId"`
	Language        string    `json:"language"`
	SubmissionCount int       `json:"submissionCount"`
	Comparisons     int       `json:"comparisons"`
	MaxSimilarity   int       `json:"maxSimilarity"`
	CreatedAt       time.Time `json:"createdAt"`
}

type publisher interface {
	Publish(subject string, data []byte) error
}

type Publisher struct {
	conn    publisher
	subject string
}

// Connect dials the NATS server at url, reconnecting forever
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("labscan"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{conn: nc, subject: RunCompletedSubject}
}

func (p *Publisher) RunCompleted(_ context.Context, run *models.ComparisonRun) error {
	event := RunCompletedEvent{
		LabID:           run.LabID,
		RunID:           run.RunID,
		Language:        string(run.Language),
		SubmissionCount: run.SubmissionCount,
		Comparisons:     len(run.Comparisons),
		CreatedAt:       run.CreatedAt,
	}
	// comparisons are ordered by similarity
	if len(run.Comparisons) > 0 {
		event.MaxSimilarity = run.Comparisons[0].Similarity
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	log.Debug().
		Str("labId", run.LabID).
		Str("runId", run.RunID).
		Str("subject", p.subject).
		Msg("Published run completion")
	return nil
}
