package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

var (
	linkedQuery   = regexp.QuoteMeta("FROM oauth_accounts o JOIN customers c ON c.id = o.customer_id")
	upsertQuery   = regexp.QuoteMeta("INSERT INTO customers (email, full_name)")
	linkQuery     = regexp.QuoteMeta("INSERT INTO oauth_accounts (provider, provider_sub, email, customer_id)")
	customerCols  = []string{"id", "email", "full_name", "created_at"}
	googleProfile = domain.ExternalProfile{Subject: "g-123", Email: " Jane@Example.com ", EmailVerified: true, Name: "Jane Doe"}
)

func newOAuthRepo(t *testing.T) (OAuthAccountRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewOAuthAccountRepository(mock), mock
}

func TestResolveFederatedReturnsLinkedCustomer(t *testing.T) {
	repo, mock := newOAuthRepo(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(linkedQuery).WithArgs(domain.OAuthProviderGoogle, "g-123").
		WillReturnRows(pgxmock.NewRows(customerCols).AddRow(int64(55), "jane@example.com", "Jane Doe", created))
	mock.ExpectCommit()

	customer, err := repo.ResolveFederated(context.Background(), domain.OAuthProviderGoogle, googleProfile)
	require.NoError(t, err)
	assert.Equal(t, int64(55), customer.ID)
	assert.Equal(t, created, customer.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveFederatedLinksCustomerInOneTransaction(t *testing.T) {
	repo, mock := newOAuthRepo(t)
	created := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(linkedQuery).WithArgs(domain.OAuthProviderGoogle, "g-123").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(upsertQuery).WithArgs("Jane@Example.com", "Jane Doe").
		WillReturnRows(pgxmock.NewRows(customerCols).AddRow(int64(77), "Jane@Example.com", "Jane Doe", created))
	mock.ExpectExec(linkQuery).WithArgs(domain.OAuthProviderGoogle, "g-123", googleProfile.Email, int64(77)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	customer, err := repo.ResolveFederated(context.Background(), domain.OAuthProviderGoogle, googleProfile)
	require.NoError(t, err)
	assert.Equal(t, int64(77), customer.ID)
	assert.Equal(t, "Jane@Example.com", customer.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveFederatedRollsBackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		arrange func(mock pgxmock.PgxPoolIface)
		wantErr string
	}{
		{
			name: "lookup fails",
			arrange: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(linkedQuery).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: "lookup oauth link",
		},
		{
			name: "customer upsert fails",
			arrange: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(linkedQuery).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnError(pgx.ErrNoRows)
				mock.ExpectQuery(upsertQuery).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("unique violation"))
			},
			wantErr: "find or create customer",
		},
		{
			name: "link insert fails",
			arrange: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(linkedQuery).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnError(pgx.ErrNoRows)
				mock.ExpectQuery(upsertQuery).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows(customerCols).AddRow(int64(77), "jane@example.com", "", time.Now()))
				mock.ExpectExec(linkQuery).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("foreign key violation"))
			},
			wantErr: "link oauth account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newOAuthRepo(t)
			mock.ExpectBegin()
			tt.arrange(mock)
			mock.ExpectRollback()

			customer, err := repo.ResolveFederated(context.Background(), domain.OAuthProviderGoogle, googleProfile)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, customer)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
