package reportstore

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore serves repeated reads from an LRU cache.
// Reports are written once per key, so cached payloads never go stale.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, []byte]
}

func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}
	return &CachedStore{next: next, cache: cache}, nil
}

func (s *CachedStore) Put(ctx context.Context, labID, runID, key string, payload []byte) error {
	if err := s.next.Put(ctx, labID, runID, key, payload); err != nil {
		return err
	}
	s.cache.Add(objectKey(labID, runID, key), append([]byte(nil), payload...))
	return nil
}

func (s *CachedStore) Get(ctx context.Context, labID, runID, key string) ([]byte, error) {
	ck := objectKey(labID, runID, key)
	if payload, ok := s.cache.Get(ck); ok {
		return append([]byte(nil), payload...), nil
	}
	payload, err := s.next.Get(ctx, labID, runID, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(ck, append([]byte(nil), payload...))
	return payload, nil
}

func (s *CachedStore) List(ctx context.Context, labID string) ([]string, error) {
	return s.next.List(ctx, labID)
}
