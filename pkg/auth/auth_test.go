package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-length"

func TestContext_Ownership(t *testing.T) {
	customer := New("acc-1", RoleCustomer)
	admin := New("root", RoleAdmin)

	assert.True(t, customer.Owns("acc-1"))
	assert.False(t, customer.Owns("acc-2"))
	assert.False(t, customer.Owns(""))
	assert.False(t, customer.IsAdmin())
	assert.True(t, admin.OwnsOrAdmin("acc-1"))
	assert.True(t, System().IsAdmin())
	assert.True(t, Context{}.Anonymous())
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), New("acc-1", RolePerformer))
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "acc-1", got.AccountID)
	assert.Equal(t, RolePerformer, got.Role)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestParseToken(t *testing.T) {
	token, err := IssueToken(New("acc-9", RoleCustomer), testSecret, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "acc-9", got.AccountID)
	assert.Equal(t, RoleCustomer, got.Role)
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := IssueToken(New("acc-9", RoleCustomer), testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(New("acc-9", RoleCustomer), testSecret, -time.Minute)
	require.NoError(t, err)
	badRole, err := IssueToken(New("acc-9", Role("root")), testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other-secret"},
		{"expired", expired, testSecret},
		{"unknown role", badRole, testSecret},
		{"garbage", "not-a-token", testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
