package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/config"
	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/mailer"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

type fakeStore struct {
	purgedBefore time.Time
	recipients   map[string][]db.DigestRecipient
}

func (f *fakeStore) PurgeReadNotifications(_ context.Context, before time.Time) (int64, error) {
	f.purgedBefore = before
	return 3, nil
}

func (f *fakeStore) ListDigestRecipients(_ context.Context, digest string) ([]db.DigestRecipient, error) {
	return f.recipients[digest], nil
}

type fakeMailer struct {
	sent []mailer.Message
}

func (f *fakeMailer) SendAsync(msg mailer.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeStore, *fakeMailer) {
	t.Helper()
	cfg := &config.Config{NotificationRetention: 30 * 24 * time.Hour, AppBaseURL: "https://swapify.example"}
	store := &fakeStore{recipients: map[string][]db.DigestRecipient{}}
	m := &fakeMailer{}
	s, err := New(cfg, store, m, zap.NewNop())
	require.NoError(t, err)
	return s, store, m
}

func TestJobsRegistered(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	assert.Len(t, s.cron.Entries(), 3)
	s.Start()
	s.Stop()
}

func TestPurgeUsesRetention(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	now := time.Date(2024, 3, 31, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.PurgeNotifications(context.Background()))
	assert.Equal(t, time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC), store.purgedBefore)
}

func TestSendDigests(t *testing.T) {
	s, store, m := newTestScheduler(t)
	store.recipients[models.DigestWeekly] = []db.DigestRecipient{
		{UserID: uuid.New(), Email: "ada@example.com", Name: "Ada", Unread: 4},
	}

	require.NoError(t, s.SendDigests(context.Background(), models.DigestDaily))
	assert.Empty(t, m.sent)

	require.NoError(t, s.SendDigests(context.Background(), models.DigestWeekly))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "ada@example.com", m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, "4 unread")
	assert.Contains(t, m.sent[0].Body, "https://swapify.example/notifications")
}
