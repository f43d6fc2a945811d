package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

// OAuthAccountRepository links federated identities to local customers.
type OAuthAccountRepository interface {
	ResolveFederated(ctx context.Context, provider string, profile domain.ExternalProfile) (*domain.Customer, error)
}

type oauthAccountRepository struct {
	db DB
}

// NewOAuthAccountRepository returns a Postgres-backed implementation.
func NewOAuthAccountRepository(db DB) OAuthAccountRepository {
	return &oauthAccountRepository{db: db}
}

// ResolveFederated finds the customer linked to the provider subject. When no
// link exists it links the customer owning the email, creating one if needed.
// Lookup, customer upsert and link insert share one transaction.
func (r *oauthAccountRepository) ResolveFederated(ctx context.Context, provider string, profile domain.ExternalProfile) (*domain.Customer, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin oauth link: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	customer, err := resolveInTx(ctx, tx, provider, profile)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit oauth link: %w", err)
	}
	return customer, nil
}

func resolveInTx(ctx context.Context, tx pgx.Tx, provider string, profile domain.ExternalProfile) (*domain.Customer, error) {
	var customer domain.Customer

	const linked = `
        SELECT c.id, c.email, c.full_name, c.created_at
        FROM oauth_accounts o JOIN customers c ON c.id = o.customer_id
        WHERE o.provider = $1 AND o.provider_sub = $2`
	err := tx.QueryRow(ctx, linked, provider, profile.Subject).
		Scan(&customer.ID, &customer.Email, &customer.FullName, &customer.CreatedAt)
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup oauth link: %w", err)
	}

	const upsertCustomer = `
        INSERT INTO customers (email, full_name)
        VALUES ($1, $2)
        ON CONFLICT ((lower(email))) DO UPDATE SET email = customers.email
        RETURNING id, email, full_name, created_at`
	if err := tx.QueryRow(ctx, upsertCustomer, strings.TrimSpace(profile.Email), profile.Name).
		Scan(&customer.ID, &customer.Email, &customer.FullName, &customer.CreatedAt); err != nil {
		return nil, fmt.Errorf("find or create customer: %w", err)
	}

	const link = `
        INSERT INTO oauth_accounts (provider, provider_sub, email, customer_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (provider, provider_sub) DO NOTHING`
	if _, err := tx.Exec(ctx, link, provider, profile.Subject, profile.Email, customer.ID); err != nil {
		return nil, fmt.Errorf("link oauth account: %w", err)
	}
	return &customer, nil
}
