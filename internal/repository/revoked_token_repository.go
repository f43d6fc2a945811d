package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/revocation"
)

// RevokedTokenRepository persists revocations in Postgres so every instance
// sees them. Tokens are stored by hash.
type RevokedTokenRepository struct {
	db     DB
	clock  clock.Clock
	logger *zap.Logger
}

// NewRevokedTokenRepository constructs repository. A nil clock means wall time.
func NewRevokedTokenRepository(db DB, clk clock.Clock, logger *zap.Logger) *RevokedTokenRepository {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevokedTokenRepository{db: db, clock: clk, logger: logger}
}

// Revoke upserts the revocation, keeping the later expiry.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	now := r.clock.Now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(revocation.DefaultTTL)
	}
	if !expiresAt.After(now) {
		return nil
	}

	const query = `
        INSERT INTO revoked_tokens (token_hash, expires_at)
        VALUES ($1, $2)
        ON CONFLICT (token_hash)
        DO UPDATE SET expires_at = GREATEST(revoked_tokens.expires_at, EXCLUDED.expires_at)`
	if _, err := r.db.Exec(ctx, query, revocation.HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports a live revocation and deletes the row once it has expired.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	hash := revocation.HashToken(token)

	var expiresAt time.Time
	err := r.db.QueryRow(ctx, `SELECT expires_at FROM revoked_tokens WHERE token_hash = $1`, hash).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}

	now := r.clock.Now()
	if now.Before(expiresAt) {
		return true, nil
	}

	// The expiry guard keeps a concurrent re-revoke from being deleted. A failed
	// eviction is left to the sweeper.
	if _, err := r.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE token_hash = $1 AND expires_at <= $2`, hash, now); err != nil {
		r.logger.Warn("evict expired revocation", zap.Error(err))
	}
	return false, nil
}

// CleanExpired removes every expired revocation.
func (r *RevokedTokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, r.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("clean expired revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}
