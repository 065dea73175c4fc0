package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	list, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, list)

	assert.Equal(t, "0001_init", list[0].Version)
	for _, table := range []string{"roles", "user_profile", "password_resets", "products", "swaps", "shoutouts", "notifications"} {
		assert.Contains(t, list[0].SQL, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Contains(t, list[0].SQL, "UNIQUE (user_id, product_id)")
	assert.Contains(t, list[0].SQL, "WHERE status = 'pending'")
}
