package chat

import (
	"context"
	"time"

	"slimechat/backend/internal/store"
	"slimechat/backend/pkg/logger"
	"slimechat/backend/pkg/metrics"
)

// vacuumEvery is the number of deleting ticks between VACUUM runs
const vacuumEvery = 5

// RetentionService trims the message log back to the configured cap on a
// fixed interval. It runs independently of the hub; a failed tick is logged
// and the next tick proceeds as if nothing happened.
type RetentionService struct {
	messages store.MessageRepository
	keep     int
	interval time.Duration
	log      *logger.Logger

	// tick counters, process-local, reset on restart
	ticks          int
	lastVacuumTick int
}

func NewRetentionService(messages store.MessageRepository, keep int, interval time.Duration, log *logger.Logger) *RetentionService {
	return &RetentionService{
		messages: messages,
		keep:     keep,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is cancelled, executing one cleanup pass per interval
func (s *RetentionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("retention service started", "keep", s.keep, "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.log.Info("retention service stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.LogError(err, "message cleanup failed")
			}
		}
	}
}

// RunOnce performs a single cleanup pass: find the timestamp at rank keep
// (newest first) and delete everything at or below it. Under the cap there is
// no cutoff and nothing is deleted, which also makes back-to-back passes
// idempotent.
func (s *RetentionService) RunOnce(ctx context.Context) error {
	s.ticks++

	cutoff, err := s.messages.RetentionCutoff(ctx, s.keep)
	if err != nil {
		return err
	}
	if cutoff == 0 {
		return nil
	}

	deleted, err := s.messages.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		metrics.RetentionDeleted.Add(float64(deleted))
		s.log.Info("purged old messages", "deleted", deleted, "cutoff", cutoff)
	}

	if s.ticks-s.lastVacuumTick > vacuumEvery-1 {
		s.lastVacuumTick = s.ticks
		if err := s.messages.Vacuum(ctx); err != nil {
			s.log.LogError(err, "vacuum failed")
		}
	}

	return nil
}
