package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/notify"
)

type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

type fakeCron struct{ r *recorder }

func (c fakeCron) Stop() { c.r.add("cron") }

type recordingHub struct {
	*notify.Hub
	r *recorder
}

func (h recordingHub) Shutdown() {
	h.r.add("hub")
	h.Hub.Shutdown()
}

// drainingServer waits for its in-flight requests like fiber does
type drainingServer struct {
	r        *recorder
	inFlight *sync.WaitGroup
}

func (s drainingServer) ShutdownWithContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.r.add("server")
		return nil
	case <-ctx.Done():
		s.r.add("server timeout")
		return ctx.Err()
	}
}

type fakeMail struct{ r *recorder }

func (m fakeMail) Close() { m.r.add("mail") }

func TestShutdownReleasesWaitersBeforeDraining(t *testing.T) {
	r := &recorder{}
	hub := notify.NewHub(zap.NewNop())

	var inFlight sync.WaitGroup
	inFlight.Add(1)
	go func() {
		defer inFlight.Done()
		_, ok := hub.Wait(context.Background(), uuid.New(), time.Minute)
		assert.False(t, ok)
	}()
	require.Eventually(t, func() bool { return hub.Online() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	shutdown(ctx, zap.NewNop(), fakeCron{r}, recordingHub{hub, r}, drainingServer{r, &inFlight}, fakeMail{r})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"cron", "hub", "server", "mail"}, r.steps)
}
