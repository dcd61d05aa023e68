package crypto

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fbworkers.net/internal/config"
	"gitlab.com/fbworkers.net/internal/domain"
)

func TestIssueAndVerifyOperatorToken(t *testing.T) {
	svc := NewJWTService(&config.JwtConfig{Secret: "s3cret"})
	ctx := context.Background()

	token, err := svc.IssueOperatorToken(ctx, "ops", domain.PermissionSettingsWrite)
	require.NoError(t, err)

	ok, err := svc.VerifyTokenHMAC(ctx, token, "HS256")
	require.NoError(t, err)
	assert.True(t, ok)

	payload, err := svc.DecodeTokenPayload(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ops", payload.Username)
	assert.True(t, payload.Has(domain.PermissionSettingsWrite))
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	other := NewJWTService(&config.JwtConfig{Secret: "other"})
	svc := NewJWTService(&config.JwtConfig{Secret: "s3cret"})

	foreign, err := other.IssueOperatorToken(ctx, "ops")
	require.NoError(t, err)
	ok, err := svc.VerifyTokenHMAC(ctx, foreign, "HS256")
	assert.Error(t, err)
	assert.False(t, ok)

	expired, err := svc.GenerateTokenHMAC(ctx, "HS256", map[string]interface{}{
		"username": "ops",
		"exp":      time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)
	_, err = svc.VerifyTokenHMAC(ctx, expired, "HS256")
	assert.Error(t, err)
}

func TestNoSecret(t *testing.T) {
	svc := NewJWTService(&config.JwtConfig{})

	_, err := svc.IssueOperatorToken(context.Background(), "ops")
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = svc.VerifyTokenHMAC(context.Background(), "a.b.c", "HS256")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := NewJWTService(&config.JwtConfig{Secret: "x"}).DecodeTokenPayload(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
