// Package housekeeping runs periodic cleanup against the store.
package housekeeping

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger is the part of the store the jobs need.
type Purger interface {
	PurgeExpiredResets(ctx context.Context) (int, error)
	PurgeReadNotifications(ctx context.Context, cutoff time.Time) (int, error)
}

type Scheduler struct {
	cron      *cron.Cron
	store     Purger
	retention time.Duration
}

// New registers the cleanup jobs. Read notifications older than retention are
// removed once a day; spent reset tokens every hour.
func New(store Purger, retention time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		store:     store,
		retention: retention,
	}
	if _, err := s.cron.AddFunc("@hourly", s.PurgeResets); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("@daily", s.PurgeNotifications); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) PurgeResets() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.store.PurgeExpiredResets(ctx)
	if err != nil {
		slog.Error("Failed to purge password reset tokens", "error", err)
		return
	}
	slog.Debug("Purged password reset tokens", "count", n)
}

func (s *Scheduler) PurgeNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.store.PurgeReadNotifications(ctx, time.Now().Add(-s.retention))
	if err != nil {
		slog.Error("Failed to purge notifications", "error", err)
		return
	}
	slog.Info("Purged read notifications", "count", n, "retention", s.retention)
}
