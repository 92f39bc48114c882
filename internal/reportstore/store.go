// Package reportstore persists comparison runs as keyed blobs addressed by (labId, runId, key).
package reportstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RishiKendai/labscan/internal/apperr"
)

// Store is a durable, append-only keyed blob store. Writes are atomic per key.
type Store interface {
	// Put fails with ErrExists when the key already holds a payload
	Put(ctx context.Context, labID, runID, key string, payload []byte) error
	// Get fails with ErrNotFound when nothing was stored under the key
	Get(ctx context.Context, labID, runID, key string) ([]byte, error)
	// List returns the ids of every committed run of labID, a run being committed once its models.RunKey entry is stored
	List(ctx context.Context, labID string) ([]string, error)
}

var (
	ErrNotFound = fmt.Errorf("report %w", apperr.ErrNotFound)
	ErrExists   = errors.New("report already exists")
)

func validate(parts ...string) error {
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty report address", apperr.ErrInvalidArgument)
		}
		if strings.Contains(p, "/") {
			return fmt.Errorf("%w: report address %q contains '/'", apperr.ErrInvalidArgument, p)
		}
	}
	return nil
}

func objectKey(labID, runID, key string) string {
	return labID + "/" + runID + "/" + key
}
