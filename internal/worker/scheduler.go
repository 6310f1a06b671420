package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker runs until ctx is cancelled.
type Worker interface {
	Name() string
	Run(ctx context.Context)
}

var ErrStopTimeout = errors.New("workers did not stop in time")

// Scheduler owns the lifetime of background workers: Start launches them under one context
// and Stop cancels it and waits.
type Scheduler struct {
	logger      *zap.Logger
	stopTimeout time.Duration

	mu      sync.Mutex
	workers []Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger, stopTimeout: 10 * time.Second}
}

// AddWorker registers w. Workers added after Start are not run.
func (s *Scheduler) AddWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, w)
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, w := range s.workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log := s.logger.With(zap.String("worker", w.Name()))
			log.Info("Worker started")
			w.Run(ctx)
			log.Info("Worker stopped")
		}()
	}
	s.logger.Info("Scheduler started", zap.Int("workers", len(s.workers)))
}

// Stop cancels every worker and waits up to the stop timeout. Calling it again is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.stopTimeout):
		s.logger.Warn("Scheduler stop timed out", zap.Duration("timeout", s.stopTimeout))
		return ErrStopTimeout
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}
