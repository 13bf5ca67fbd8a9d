package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryTokenStore keeps revoked token ids in process memory. It is the
// fallback when redis is unavailable; revocations do not survive restarts.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryTokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	expiry, ok := s.revoked[tokenID]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		s.mu.Lock()
		delete(s.revoked, tokenID)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}
