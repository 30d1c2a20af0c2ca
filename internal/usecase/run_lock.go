package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/runlock"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

// RunGuard admits at most one live sync cycle at a time.
type RunGuard interface {
	Acquire(ctx context.Context) (runlock.Result, error)
}

// LockStatus describes the guard as seen right now.
type LockStatus struct {
	Name         string        `json:"name"`
	Backend      string        `json:"backend"`
	Held         bool          `json:"held"`
	LastPollTime *time.Time    `json:"last_poll_time,omitempty"`
	Remaining    time.Duration `json:"remaining"`
}

// LockInspector reports guard state without claiming it.
type LockInspector interface {
	Inspect(ctx context.Context) (LockStatus, error)
}

type RunLockConfig struct {
	Name        string
	MinInterval time.Duration
	SettleDelay time.Duration
	Tolerance   time.Duration
}

// RunLock is a timestamp claim over a plain read/write store. Two runs that
// both read before either writes, and whose claims land within Tolerance of
// each other, can both proceed. That window is accepted; use the redis guard
// where an atomic claim is needed.
type RunLock struct {
	repo   runlock.Repository
	cfg    RunLockConfig
	logger *logging.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRunLock(repo runlock.Repository, cfg RunLockConfig, logger *logging.Logger) *RunLock {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Name == "" {
		cfg.Name = runlock.LiveScoresLock
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 50 * time.Second
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 50 * time.Millisecond
	}

	return &RunLock{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

func (l *RunLock) Acquire(ctx context.Context) (runlock.Result, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RunLock.Acquire")
	defer span.End()

	now := l.now().UTC().Truncate(time.Microsecond)
	current, exists, err := l.repo.Get(ctx, l.cfg.Name)
	if err != nil {
		return "", fmt.Errorf("read run lock: %w", err)
	}
	if exists {
		elapsed := absDuration(now.Sub(current.LastPollTime))
		if elapsed < l.cfg.MinInterval {
			l.logger.InfoContext(ctx, "run lock held, skipping cycle",
				"lock", l.cfg.Name,
				"last_poll_time", current.LastPollTime,
				"elapsed", elapsed,
				"min_interval", l.cfg.MinInterval,
			)
			return runlock.ResultSkipped, nil
		}
	}

	if err := l.repo.Put(ctx, runlock.Record{Name: l.cfg.Name, LastPollTime: now}); err != nil {
		return "", fmt.Errorf("claim run lock: %w", err)
	}

	if err := l.sleep(ctx, l.cfg.SettleDelay); err != nil {
		return "", fmt.Errorf("wait for run lock settle: %w", err)
	}

	stored, exists, err := l.repo.Get(ctx, l.cfg.Name)
	if err != nil {
		return "", fmt.Errorf("re-read run lock: %w", err)
	}
	if !exists || absDuration(stored.LastPollTime.Sub(now)) > l.cfg.Tolerance {
		l.logger.InfoContext(ctx, "run lock claimed by a concurrent run",
			"lock", l.cfg.Name,
			"claimed", now,
			"stored", stored.LastPollTime,
		)
		return runlock.ResultSkipped, nil
	}

	return runlock.ResultAcquired, nil
}

func (l *RunLock) Inspect(ctx context.Context) (LockStatus, error) {
	status := LockStatus{Name: l.cfg.Name, Backend: "store"}
	record, exists, err := l.repo.Get(ctx, l.cfg.Name)
	if err != nil {
		return status, fmt.Errorf("read run lock: %w", err)
	}
	if !exists {
		return status, nil
	}

	last := record.LastPollTime.UTC()
	status.LastPollTime = &last
	if remaining := l.cfg.MinInterval - absDuration(l.now().UTC().Sub(last)); remaining > 0 {
		status.Held = true
		status.Remaining = remaining
	}
	return status, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
