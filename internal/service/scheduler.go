package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	alertScanLockKey = "forecast:lock:alert_scan"
	backtestLockKey  = "forecast:lock:backtest"
)

// Job is a unit of scheduled work.
type Job struct {
	Name     string
	LockKey  string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on fixed intervals. Each run takes a run lock so
// overlapping runs across instances skip instead of double-working.
type Scheduler struct {
	jobs   []Job
	locker cache.RunLocker
	wg     sync.WaitGroup
}

func NewScheduler(cfg config.SchedulerConfig, alerts *AlertService, backtest *BacktestService, locker cache.RunLocker) *Scheduler {
	if locker == nil {
		locker = cache.NewRunLocker(nil)
	}

	alertInterval := cfg.AlertInterval
	if alertInterval <= 0 {
		alertInterval = time.Hour
	}
	backtestInterval := cfg.BacktestInterval
	if backtestInterval <= 0 {
		backtestInterval = 24 * time.Hour
	}

	return &Scheduler{
		locker: locker,
		jobs: []Job{
			{
				Name:     "alert_scan",
				LockKey:  alertScanLockKey,
				Interval: alertInterval,
				Timeout:  10 * time.Minute,
				Run: func(ctx context.Context) error {
					_, err := alerts.Scan(ctx)
					return err
				},
			},
			{
				Name:     "backtest",
				LockKey:  backtestLockKey,
				Interval: backtestInterval,
				Timeout:  30 * time.Minute,
				Run: func(ctx context.Context) error {
					_, err := backtest.Run(ctx)
					return err
				},
			},
		},
	}
}

// Start launches one loop per job. Loops stop when ctx is cancelled; Wait
// blocks until they have returned.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			s.loop(ctx, job)
		}(job)
	}
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	log.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("scheduler job started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx, job); err != nil {
				log.Warn().Err(err).Str("job", job.Name).Msg("scheduled run failed")
			}
		}
	}
}

// RunOnce executes a job under its run lock. A lock held elsewhere is not an
// error; the run is skipped.
func (s *Scheduler) RunOnce(parent context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(parent, job.Timeout)
	defer cancel()

	token, ok, err := s.locker.TryLock(ctx, job.LockKey, job.Timeout)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug().Str("job", job.Name).Msg("run lock held elsewhere, skipping")
		return nil
	}
	defer func() {
		// Release with a fresh context so a timed-out run still frees the lock.
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer releaseCancel()
		if err := s.locker.Release(releaseCtx, job.LockKey, token); err != nil {
			log.Warn().Err(err).Str("job", job.Name).Msg("failed to release run lock")
		}
	}()

	start := time.Now()
	err = job.Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Str("job", job.Name).Dur("timeout", job.Timeout).Msg("job timed out")
		return nil
	}
	if err == nil {
		log.Info().Str("job", job.Name).Dur("elapsed", time.Since(start)).Msg("scheduled run finished")
	}
	return err
}
