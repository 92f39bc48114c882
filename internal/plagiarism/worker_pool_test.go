package plagiarism

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob func(ctx context.Context) error

func (f funcJob) Execute(ctx context.Context) error {
	return f(ctx)
}

func TestWorkerPoolRunsJobs(t *testing.T) {
	pool := NewSizedWorkerPool(context.Background(), 3)
	defer pool.Close()
	assert.Equal(t, 3, pool.Size())

	var count atomic.Int32
	done := make(chan struct{}, 20)
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(context.Background(), funcJob(func(context.Context) error {
			count.Add(1)
			done <- struct{}{}
			return nil
		})))
	}
	for i := 0; i < 20; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("jobs did not finish")
		}
	}
	assert.Equal(t, int32(20), count.Load())
}

func TestWorkerPoolSurvivesPanics(t *testing.T) {
	pool := NewSizedWorkerPool(context.Background(), 1)
	defer pool.Close()

	require.NoError(t, pool.Submit(context.Background(), funcJob(func(context.Context) error {
		panic("boom")
	})))
	require.NoError(t, pool.Submit(context.Background(), funcJob(func(context.Context) error {
		return errors.New("failed")
	})))

	ran := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), funcJob(func(context.Context) error {
		close(ran)
		return nil
	})))
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("worker died after a panic")
	}
}

func TestWorkerPoolClose(t *testing.T) {
	pool := NewSizedWorkerPool(context.Background(), 2)
	pool.Close()

	select {
	case <-pool.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
	assert.Error(t, pool.Submit(context.Background(), funcJob(func(context.Context) error { return nil })))
}

func TestWorkerPoolDefaultSize(t *testing.T) {
	pool := NewWorkerPool(context.Background())
	defer pool.Close()
	assert.GreaterOrEqual(t, pool.Size(), 1)
}
