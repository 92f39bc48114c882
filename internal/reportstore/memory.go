package reportstore

import (
	"context"
	"sort"
	"sync"

	"github.com/RishiKendai/labscan/internal/models"
)

// MemoryStore keeps reports in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	runs map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		runs: make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Put(ctx context.Context, labID, runID, key string, payload []byte) error {
	if err := validate(labID, runID, key); err != nil {
		return err
	}
	cp := append([]byte(nil), payload...)

	s.mu.Lock()
	defer s.mu.Unlock()
	ok := objectKey(labID, runID, key)
	if _, exists := s.data[ok]; exists {
		return ErrExists
	}
	s.data[ok] = cp
	if key != models.RunKey {
		return nil
	}
	if s.runs[labID] == nil {
		s.runs[labID] = make(map[string]struct{})
	}
	s.runs[labID][runID] = struct{}{}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, labID, runID, key string) ([]byte, error) {
	if err := validate(labID, runID, key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.data[objectKey(labID, runID, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (s *MemoryStore) List(ctx context.Context, labID string) ([]string, error) {
	if err := validate(labID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runs[labID]))
	for id := range s.runs[labID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
