// Package revocation tracks bearer tokens that must stop being honoured
// before their natural expiry.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultTTL bounds a revocation whose token expiry is unknown. It covers the
// longest access token lifetime the service issues.
const DefaultTTL = 24 * time.Hour

// Store records revoked tokens. A zero expiresAt means now + DefaultTTL.
type Store interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Cleaner is implemented by stores that need explicit purging of expired entries.
type Cleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// HashToken returns the hex sha256 of a token so raw bearer values are not persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func resolveExpiry(now, expiresAt time.Time) time.Time {
	if expiresAt.IsZero() {
		return now.Add(DefaultTTL)
	}
	return expiresAt
}
