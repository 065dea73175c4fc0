package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/config"
	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/mailer"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

// Job specs
const (
	PurgeSpec        = "0 3 * * *"
	DailyDigestSpec  = "0 8 * * *"
	WeeklyDigestSpec = "0 8 * * 1"
)

// Store is the storage the jobs need
type Store interface {
	PurgeReadNotifications(ctx context.Context, before time.Time) (int64, error)
	ListDigestRecipients(ctx context.Context, digest string) ([]db.DigestRecipient, error)
}

// Mailer queues outgoing mail
type Mailer interface {
	SendAsync(msg mailer.Message) error
}

// Scheduler runs the periodic maintenance jobs
type Scheduler struct {
	cron   *cron.Cron
	store  Store
	mailer Mailer
	cfg    *config.Config
	log    *zap.Logger
	now    func() time.Time
}

// New creates a scheduler with all jobs registered, running in UTC
func New(cfg *config.Config, store Store, m Mailer, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		store:  store,
		mailer: m,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}

	jobs := []struct {
		spec string
		name string
		fn   func(ctx context.Context) error
	}{
		{PurgeSpec, "purge_notifications", s.PurgeNotifications},
		{DailyDigestSpec, "daily_digest", func(ctx context.Context) error { return s.SendDigests(ctx, models.DigestDaily) }},
		{WeeklyDigestSpec, "weekly_digest", func(ctx context.Context) error { return s.SendDigests(ctx, models.DigestWeekly) }},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, func() { s.run(job.name, job.fn) }); err != nil {
			return nil, fmt.Errorf("add job %s: %w", job.name, err)
		}
	}

	return s, nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error("job panicked", zap.String("job", name), zap.Any("panic", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// PurgeNotifications deletes read notifications older than the retention period
func (s *Scheduler) PurgeNotifications(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.NotificationRetention)
	n, err := s.store.PurgeReadNotifications(ctx, cutoff)
	if err != nil {
		return err
	}
	s.log.Info("read notifications purged", zap.Int64("deleted", n), zap.Time("before", cutoff))
	return nil
}

// SendDigests emails an unread summary to every user on the given digest frequency
func (s *Scheduler) SendDigests(ctx context.Context, digest string) error {
	recipients, err := s.store.ListDigestRecipients(ctx, digest)
	if err != nil {
		return err
	}

	for _, r := range recipients {
		msg := mailer.Message{
			To:      r.Email,
			Subject: fmt.Sprintf("You have %d unread notifications on Swapify", r.Unread),
			Body: fmt.Sprintf("Hi %s,\n\nYou have %d unread notifications waiting for you.\n\n%s/notifications\n",
				r.Name, r.Unread, s.cfg.AppBaseURL),
		}
		if err := s.mailer.SendAsync(msg); err != nil {
			s.log.Error("queue digest failed", zap.String("user_id", r.UserID.String()), zap.Error(err))
		}
	}
	return nil
}
