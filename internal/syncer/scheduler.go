package syncer

import (
	"context"
	"go.uber.org/zap"
	"time"
)

type AllSyncer interface {
	SyncAll(ctx context.Context, policy Policy) ([]Result, error)
}

// Scheduler runs SyncAll on a fixed interval. A run that outlasts the
// interval delays the next tick instead of overlapping it.
type Scheduler struct {
	Syncer   AllSyncer
	Interval time.Duration
	Log      *zap.Logger

	done chan struct{}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.Run(ctx)
	}()
}

// Wait blocks until the goroutine started by Start has returned.
func (s *Scheduler) Wait() {
	if s.done != nil {
		<-s.done
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Log.Info("sync scheduler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.Log.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.Log.Info("scheduled sync starting")
	results, err := s.Syncer.SyncAll(ctx, ContinueOnError)
	if err != nil {
		s.Log.Error("scheduled sync failed", zap.Error(err))
		return
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	s.Log.Info("scheduled sync completed", zap.Int("tenants", len(results)), zap.Int("failed", failed))
}
