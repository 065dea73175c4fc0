package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	id := uuid.New()

	token, err := svc.GenerateToken(id, models.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenRejected(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, err := NewJWTService("other", time.Hour).GenerateToken(uuid.New(), models.RoleUser)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)

	expired := NewJWTService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err = expired.GenerateToken(uuid.New(), models.RoleUser)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)

	_, err = svc.ParseToken("not-a-token")
	assert.Error(t, err)
}
