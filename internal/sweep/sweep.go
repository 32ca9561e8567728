// Package sweep is the housekeeping side of expiry: it flags secrets whose
// time budget ran out without anyone viewing them, and optionally purges
// expired records after a retention period.
package sweep

import (
	"context"
	"errors"
	"time"

	"secret.share/internal/logging"
	"secret.share/internal/store"
)

type Result struct {
	Expired int
	Purged  int
}

type Sweeper struct {
	store      store.Store
	log        *logging.Logger
	purgeAfter time.Duration
	now        func() time.Time
}

// New returns a sweeper. purgeAfter is measured from creation; zero keeps
// expired records forever.
func New(st store.Store, log *logging.Logger, purgeAfter time.Duration) *Sweeper {
	return &Sweeper{store: st, log: log, purgeAfter: purgeAfter, now: time.Now}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.Once(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.Errorf("sweep failed: %v", err)
				continue
			}
			if res.Expired > 0 || res.Purged > 0 {
				s.log.Infof("sweep: %d expired, %d purged", res.Expired, res.Purged)
			}
		}
	}
}

// Once runs a single pass.
func (s *Sweeper) Once(ctx context.Context) (Result, error) {
	var res Result
	all, err := s.store.List(ctx)
	if err != nil {
		return res, err
	}
	now := s.now()
	for _, secret := range all {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !secret.IsExpired && secret.Expired(now) {
			// Same guarded update as a view, with the count left alone.
			next := secret.State()
			next.IsExpired = true
			err := s.store.CompareAndUpdate(ctx, secret.ID, secret.ViewCount, next)
			switch {
			case err == nil:
				res.Expired++
				secret.IsExpired = true
			case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrNotFound):
				// a concurrent view or purge got there first
				continue
			default:
				return res, err
			}
		}
		if secret.IsExpired && s.purgeAfter > 0 && now.Sub(secret.CreatedAt) >= s.purgeAfter {
			if err := s.store.Delete(ctx, secret.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return res, err
			}
			res.Purged++
		}
	}
	return res, nil
}
