//go:build integration
// +build integration

package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("swapify_test"),
		postgres.WithUsername("swapify"),
		postgres.WithPassword("swapify"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	applied, err := Migrate(ctx, connStr, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	// a second run is a no-op
	applied, err = Migrate(ctx, connStr, zap.NewNop())
	require.NoError(t, err)
	require.Zero(t, applied)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewStore(pool)
}

func TestStoreSwapLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	owner, err := store.CreateUser(ctx, NewUser{Email: "owner@example.com", PasswordHash: "x", Role: models.RoleUser, SwapCredits: 1})
	require.NoError(t, err)
	sender, err := store.CreateUser(ctx, NewUser{Email: "Sender@Example.com", PasswordHash: "x", Role: models.RoleUser, SwapCredits: 1})
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", sender.Email)

	_, err = store.CreateUser(ctx, NewUser{Email: "owner@example.com", PasswordHash: "x", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrConflict)

	product := &models.Product{UserID: owner.ID, Name: "Notion AI", RedemptionType: models.RedemptionManual, ProductLink: "https://notion.so"}
	require.NoError(t, store.CreateProduct(ctx, product))

	pending, err := store.ListProductsByStatus(ctx, models.ProductPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = store.UpdateProductStatus(ctx, product.ID, models.ProductPending, models.ProductApproved)
	require.NoError(t, err)
	_, err = store.UpdateProductStatus(ctx, product.ID, models.ProductPending, models.ProductRejected)
	assert.ErrorIs(t, err, ErrStaleStatus)

	pending, err = store.ListProductsByStatus(ctx, models.ProductPending, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	swap := &models.Swap{SenderID: sender.ID, ReceiverID: owner.ID, ProductID: product.ID}
	require.NoError(t, store.CreateSwap(ctx, swap))

	// credits are exhausted now
	err = store.CreateSwap(ctx, &models.Swap{SenderID: sender.ID, ReceiverID: owner.ID, ProductID: product.ID})
	assert.ErrorIs(t, err, ErrNoSwapCredits)

	// concurrent resolutions, exactly one wins
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.UpdateSwapStatus(ctx, swap.ID, models.SwapAccepted)
		}(i)
	}
	wg.Wait()

	stale := 0
	for _, err := range results {
		if errors.Is(err, ErrStaleStatus) {
			stale++
		} else {
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 1, stale)

	final, err := store.GetSwap(ctx, swap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapAccepted, final.Status)

	_, err = store.UpdateSwapStatus(ctx, swap.ID, models.SwapRejected)
	assert.ErrorIs(t, err, ErrStaleStatus)

	_, err = store.UpdateSwapStatus(ctx, uuid.New(), models.SwapAccepted)
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := store.ListSwapHistory(ctx, owner.ID, "notion")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	require.NoError(t, store.CreateShoutout(ctx, &models.Shoutout{UserID: sender.ID, ProductID: product.ID, SwapID: swap.ID, Content: "Great", Rating: 5}))
	err = store.CreateShoutout(ctx, &models.Shoutout{UserID: sender.ID, ProductID: product.ID, SwapID: swap.ID, Content: "Again", Rating: 4})
	assert.ErrorIs(t, err, ErrConflict)

	profile, err := store.GetUserByID(ctx, sender.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.SwapCredits)
}

func TestStoreNotificationsAndReset(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, NewUser{Email: "n@example.com", PasswordHash: "old", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultNotificationPrefs(), user.Prefs)

	require.NoError(t, store.CreateNotification(ctx, &models.Notification{UserID: user.ID, Kind: models.KindSwap, Message: "hello"}))
	require.NoError(t, store.CreateNotification(ctx, &models.Notification{UserID: user.ID, Message: "world"}))

	unread, err := store.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	recipients, err := store.ListDigestRecipients(ctx, models.DigestDaily)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, 2, recipients[0].Unread)

	marked, err := store.MarkAllNotificationsRead(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, marked)

	purged, err := store.PurgeReadNotifications(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)

	require.NoError(t, store.CreatePasswordReset(ctx, user.ID, "hash", time.Now().Add(time.Hour)))
	id, err := store.ResetPassword(ctx, "hash", "new")
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, err = store.ResetPassword(ctx, "hash", "newer")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetUserRole(ctx, "n@example.com", models.RoleAdmin))
	admins, err := store.ListAdminIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user.ID}, admins)
}
