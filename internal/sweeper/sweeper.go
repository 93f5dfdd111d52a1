package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/domain"
)

type Config struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
	// LockGrace keeps just-expired locks around for one buffer window so the
	// sweep never races a client that is mid-way through extending its own
	// lock. The engine treats such rows as expired regardless.
	LockGrace    time.Duration
	SessionGrace time.Duration
	Retention    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Minute,
		ErrorBackoff: time.Minute,
		LockGrace:    time.Minute,
		SessionGrace: 5 * time.Minute,
		Retention:    24 * time.Hour,
	}
}

// Sweeper is the process-lifetime background task that reclaims expired
// seat locks and stale booking sessions. It is constructed with its
// dependencies injected and driven by the caller's context, so a single
// tick can be exercised in isolation.
type Sweeper struct {
	store  domain.SweepStore
	logger *slog.Logger
	cfg    Config

	now func() time.Time
}

func New(store domain.SweepStore, logger *slog.Logger, cfg Config) *Sweeper {
	return &Sweeper{
		store:  store,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Start runs the sweep loop until ctx is canceled. A failed tick is logged
// and retried on a shorter backoff; no tick can take the loop down.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting booking sweeper",
		"interval", s.cfg.Interval,
		"lock_grace", s.cfg.LockGrace,
		"session_grace", s.cfg.SessionGrace,
		"retention", s.cfg.Retention,
	)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping booking sweeper")
			return
		case <-timer.C:
		}

		if err := s.Sweep(ctx); err != nil {
			timer.Reset(s.cfg.ErrorBackoff)
		} else {
			timer.Reset(s.cfg.Interval)
		}
	}
}

// Sweep performs one tick. The three steps are independently fault-isolated:
// a failure in one is logged and does not stop the others, and the joined
// error only shortens the wait until the next tick.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now()

	var errs []error

	locks, err := s.store.DeleteExpiredSeatLocks(ctx, now.Add(-s.cfg.LockGrace))
	if err != nil {
		s.logger.Error("failed to delete expired seat locks", "error", err)
		errs = append(errs, err)
	} else if locks > 0 {
		s.logger.Info("deleted expired seat locks", "count", locks)
	}

	canceled, err := s.store.CancelExpiredDraftSessions(ctx, now.Add(-s.cfg.SessionGrace))
	if err != nil {
		s.logger.Error("failed to cancel expired draft sessions", "error", err)
		errs = append(errs, err)
	} else if canceled > 0 {
		s.logger.Info("canceled expired draft sessions", "count", canceled)
	}

	purged, err := s.store.PurgeCanceledSessions(ctx, now.Add(-s.cfg.Retention))
	if err != nil {
		s.logger.Error("failed to purge canceled sessions", "error", err)
		errs = append(errs, err)
	} else if purged > 0 {
		s.logger.Info("purged canceled sessions", "count", purged)
	}

	return errors.Join(errs...)
}
