package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

func TestIdentityContextIsWriteOnce(t *testing.T) {
	first := domain.Identity{SubjectID: 1, Role: domain.RoleCustomer}
	second := domain.Identity{SubjectID: 2, Role: domain.RoleAdmin}

	ctx := WithIdentity(context.Background(), first)
	ctx = WithIdentity(ctx, second)

	got, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, first, got)
}

func TestIdentityFromEmptyContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)
}
