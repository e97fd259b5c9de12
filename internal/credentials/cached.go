package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/axisfin/conductor/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL bounds how stale a verification result may be served.
const DefaultCacheTTL = 30 * time.Second

// CachedSource decorates another source with a per-tenant TTL cache for
// VerifyKeys. Concurrent misses for the same tenant are collapsed into a
// single upstream call. APIKey is not cached: it runs once per agent start
// and must observe revocations immediately.
type CachedSource struct {
	inner domain.CredentialSource
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
	flight  singleflight.Group
}

type cacheEntry struct {
	statuses  map[domain.Provider]domain.KeyStatus
	expiresAt time.Time
}

func NewCachedSource(inner domain.CredentialSource, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (s *CachedSource) VerifyKeys(ctx context.Context, tenantID string) (map[domain.Provider]domain.KeyStatus, error) {
	s.mu.Lock()
	entry, ok := s.entries[tenantID]
	s.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return copyStatuses(entry.statuses), nil
	}

	v, err, _ := s.flight.Do(tenantID, func() (interface{}, error) {
		statuses, err := s.inner.VerifyKeys(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.entries[tenantID] = cacheEntry{
			statuses:  statuses,
			expiresAt: time.Now().Add(s.ttl),
		}
		s.mu.Unlock()
		return statuses, nil
	})
	if err != nil {
		return nil, err
	}
	return copyStatuses(v.(map[domain.Provider]domain.KeyStatus)), nil
}

func (s *CachedSource) APIKey(ctx context.Context, tenantID string, provider domain.Provider) (string, error) {
	return s.inner.APIKey(ctx, tenantID, provider)
}

func copyStatuses(in map[domain.Provider]domain.KeyStatus) map[domain.Provider]domain.KeyStatus {
	out := make(map[domain.Provider]domain.KeyStatus, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
