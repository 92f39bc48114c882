package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RishiKendai/labscan/internal/models"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StatusReporter records the step a lab's latest duplicate check has reached
type StatusReporter interface {
	SetStep(ctx context.Context, labID string, step models.Step) error
	Step(ctx context.Context, labID string) (models.Step, error)
}

var validSteps = map[models.Step]bool{
	models.StepIdle:       true,
	models.StepStarted:    true,
	models.StepTokenizing: true,
	models.StepComparing:  true,
	models.StepPersisting: true,
	models.StepCompleted:  true,
	models.StepFailed:     true,
}

const statusTTL = 12 * time.Hour

// RedisStatus keeps one status key per lab that expires after 12 hours
type RedisStatus struct {
	client goredis.Cmdable
}

func NewRedisStatus(client goredis.Cmdable) *RedisStatus {
	return &RedisStatus{client: client}
}

func statusKey(labID string) string {
	return "duplicate_check_status:" + labID
}

func (s *RedisStatus) SetStep(ctx context.Context, labID string, step models.Step) error {
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := statusKey(labID)
	err := s.client.Set(ctx, rkey, string(step), statusTTL).Err()
	if err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("labId", labID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("labId", labID).
		Msg("Status updated in Redis")

	return nil
}

// Step returns StepIdle when no run was recorded for the lab
func (s *RedisStatus) Step(ctx context.Context, labID string) (models.Step, error) {
	val, err := s.client.Get(ctx, statusKey(labID)).Result()
	if errors.Is(err, goredis.Nil) {
		return models.StepIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(val), nil
}

// MemoryStatus is a process local StatusReporter
type MemoryStatus struct {
	mu    sync.RWMutex
	steps map[string]models.Step
}

func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{steps: make(map[string]models.Step)}
}

func (s *MemoryStatus) SetStep(_ context.Context, labID string, step models.Step) error {
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}
	s.mu.Lock()
	s.steps[labID] = step
	s.mu.Unlock()
	return nil
}

func (s *MemoryStatus) Step(_ context.Context, labID string) (models.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if step, ok := s.steps[labID]; ok {
		return step, nil
	}
	return models.StepIdle, nil
}
