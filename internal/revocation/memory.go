package revocation

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore keeps revocations in a concurrent map. Each operation is atomic
// per token; there is no store-wide lock.
type MemoryStore struct {
	entries *xsync.MapOf[string, time.Time]
	clock   clock.Clock
}

// NewMemoryStore builds an empty store. A nil clock means wall time.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryStore{entries: xsync.NewMapOf[string, time.Time](), clock: clk}
}

// Revoke records token as revoked until expiresAt. Revoking an already revoked
// token keeps whichever expiry is later.
func (s *MemoryStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	now := s.clock.Now()
	expiresAt = resolveExpiry(now, expiresAt)
	if !expiresAt.After(now) {
		return nil
	}
	s.entries.Compute(token, func(current time.Time, loaded bool) (time.Time, bool) {
		if loaded && current.After(expiresAt) {
			return current, false
		}
		return expiresAt, false
	})
	return nil
}

// IsRevoked reports whether token has a live revocation. An expired entry
// found here is evicted.
func (s *MemoryStore) IsRevoked(_ context.Context, token string) (bool, error) {
	expiresAt, ok := s.entries.Load(token)
	if !ok {
		return false, nil
	}
	now := s.clock.Now()
	if now.Before(expiresAt) {
		return true, nil
	}

	revoked := false
	s.entries.Compute(token, func(current time.Time, loaded bool) (time.Time, bool) {
		if !loaded {
			return current, true
		}
		// A concurrent Revoke may have extended the entry since Load.
		if now.Before(current) {
			revoked = true
			return current, false
		}
		return current, true
	})
	return revoked, nil
}

// CleanExpired removes every entry whose expiry has passed.
func (s *MemoryStore) CleanExpired(_ context.Context) (int64, error) {
	now := s.clock.Now()
	var removed int64
	s.entries.Range(func(token string, expiresAt time.Time) bool {
		if now.Before(expiresAt) {
			return true
		}
		s.entries.Compute(token, func(current time.Time, loaded bool) (time.Time, bool) {
			if loaded && !now.Before(current) {
				removed++
				return current, true
			}
			return current, !loaded
		})
		return true
	})
	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	return s.entries.Size()
}
