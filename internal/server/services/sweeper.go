package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server/events"
	"github.com/dmitrijs2005/authservice/internal/server/lease"
)

const (
	sweepLeaseKey = "refresh-token-sweep"
	sweepLeaseTTL = 30 * time.Minute
)

// Sweeper runs the expired refresh token cleanup once per firing across
// all replicas sharing the lease backend.
type Sweeper struct {
	tokens *RefreshTokenService
	locker lease.Locker
	events events.Publisher
	log    logging.Logger
	now    func() time.Time
}

func NewSweeper(tokens *RefreshTokenService, locker lease.Locker, pub events.Publisher, log logging.Logger) *Sweeper {
	if locker == nil {
		locker = lease.Local{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Sweeper{
		tokens: tokens,
		locker: locker,
		events: pub,
		log:    log.With("module", "sweeper"),
		now:    time.Now,
	}
}

// Sweep deletes expired tokens and returns the count. ran is false when
// another replica holds the lease for this firing.
func (s *Sweeper) Sweep(ctx context.Context) (n int64, ran bool, err error) {
	release, ok, err := s.locker.TryAcquire(ctx, sweepLeaseKey, sweepLeaseTTL)
	if err != nil {
		return 0, false, fmt.Errorf("acquire sweep lease: %w", err)
	}
	if !ok {
		s.log.Info(ctx, "sweep skipped, lease held elsewhere")
		return 0, false, nil
	}

	n, err = s.tokens.CleanupExpiredTokens(ctx)
	if err != nil {
		// Let the next firing on any replica retry right away.
		if rerr := release(ctx); rerr != nil {
			s.log.Warn(ctx, "sweep lease release failed", "error", rerr)
		}
		return 0, true, err
	}

	// The lease is left to expire so replicas firing a little later skip.
	publishEvent(ctx, s.events, s.log, s.now, events.Event{Type: events.TokensSwept, Count: n})
	return n, true, nil
}

// Run is Sweep shaped as a scheduler job.
func (s *Sweeper) Run(ctx context.Context) error {
	_, _, err := s.Sweep(ctx)
	return err
}
