package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"coworkd/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverTokenStore prefers the primary store and degrades to the fallback
// when it fails, probing the primary again after a cooldown.
type FailoverTokenStore struct {
	primary  domain.TokenStore
	fallback domain.TokenStore
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

const recoveryInterval = time.Minute

func NewFailoverTokenStore(primary, fallback domain.TokenStore, logger *zerolog.Logger) *FailoverTokenStore {
	return &FailoverTokenStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *FailoverTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if s.tryPrimary() {
		if err := s.primary.Revoke(ctx, tokenID, ttl); err == nil {
			return nil
		} else {
			s.markDown(err)
		}
	}
	return s.fallback.Revoke(ctx, tokenID, ttl)
}

func (s *FailoverTokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.tryPrimary() {
		revoked, err := s.primary.IsRevoked(ctx, tokenID)
		if err == nil {
			return revoked, nil
		}
		s.markDown(err)
	}
	return s.fallback.IsRevoked(ctx, tokenID)
}

func (s *FailoverTokenStore) tryPrimary() bool {
	if s.primary == nil {
		return false
	}
	if !s.isDown.Load() {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) > recoveryInterval {
		s.lastCheck = time.Now()
		s.isDown.Store(false)
		return true
	}
	return false
}

func (s *FailoverTokenStore) markDown(err error) {
	s.logger.Error().Err(err).Msg("primary token store failed, falling back to memory")
	s.isDown.Store(true)
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}
