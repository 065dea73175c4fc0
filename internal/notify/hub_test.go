package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHubWaitReceives(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := uuid.New()

	var wg sync.WaitGroup
	wg.Add(1)
	var got models.Notification
	var ok bool
	go func() {
		defer wg.Done()
		got, ok = hub.Wait(context.Background(), userID, 5*time.Second)
	}()

	require.Eventually(t, func() bool { return hub.Online() == 1 }, time.Second, 5*time.Millisecond)

	// another user's notification is not delivered
	hub.Publish(models.Notification{UserID: uuid.New(), Message: "other"})
	hub.Publish(models.Notification{UserID: userID, Message: "hello"})
	wg.Wait()

	assert.True(t, ok)
	assert.Equal(t, "hello", got.Message)
	assert.Zero(t, hub.Online())
}

func TestHubWaitTimeout(t *testing.T) {
	hub := NewHub(zap.NewNop())

	start := time.Now()
	_, ok := hub.Wait(context.Background(), uuid.New(), 20*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Zero(t, hub.Online())
}

func TestHubWaitCancelled(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := hub.Wait(ctx, uuid.New(), time.Minute)
	assert.False(t, ok)
}

func TestHubShutdown(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := hub.Subscribe(uuid.New())
	require.NotNil(t, sub)

	hub.Shutdown()
	_, open := <-sub.C()
	assert.False(t, open)

	// unsubscribing after shutdown is a no-op
	hub.Unsubscribe(sub)
	assert.Nil(t, hub.Subscribe(uuid.New()))
}

func TestHubFullQueueDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := uuid.New()
	sub := hub.Subscribe(userID)
	defer hub.Unsubscribe(sub)

	for i := 0; i < subscriberBuffer+3; i++ {
		hub.Publish(models.Notification{UserID: userID})
	}
	assert.Len(t, sub.C(), subscriberBuffer)
}
