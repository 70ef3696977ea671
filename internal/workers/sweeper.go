package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nkrasnikov/tinyurl/internal/repository"
)

// ExpirySweeper periodically removes links whose expiry date has passed.
// Sweeps are idempotent: rerunning against an already-cleaned set deletes
// nothing. A failing sweep is retried a bounded number of times and then
// skipped until the next tick; it never takes the process down.
type ExpirySweeper struct {
	linkRepo   repository.LinkRepository
	interval   time.Duration
	maxRetries int
	retryDelay time.Duration
	nowFunc    func() time.Time // injected for tests
	sleepFunc  func(time.Duration)
}

// NewExpirySweeper creates a sweeper over the link repository.
func NewExpirySweeper(linkRepo repository.LinkRepository, interval time.Duration, maxRetries int, retryDelay time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		linkRepo:   linkRepo,
		interval:   interval,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		nowFunc:    time.Now,
		sleepFunc:  time.Sleep,
	}
}

// Run blocks, sweeping once per interval until the context is cancelled.
// It is meant to be started in its own goroutine by the server command.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[SWEEPER] Started, interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[SWEEPER] Stopped")
			return
		case <-ticker.C:
			if err := s.SweepWithRetry(ctx); err != nil {
				log.Printf("[SWEEPER] Sweep failed after %d attempts, skipping until next tick: %v", s.maxRetries+1, err)
			}
		}
	}
}

// SweepWithRetry runs one sweep, retrying transient failures with a fixed
// delay up to the configured number of retries.
func (s *ExpirySweeper) SweepWithRetry(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.sleepFunc(s.retryDelay)
		}
		var deleted int64
		deleted, err = s.SweepOnce(ctx)
		if err == nil {
			if deleted > 0 {
				log.Printf("[SWEEPER] Removed %d expired links", deleted)
			}
			return nil
		}
		log.Printf("[SWEEPER] Sweep attempt %d/%d failed: %v", attempt+1, s.maxRetries+1, err)
	}
	return err
}

// SweepOnce lists the currently expired links and deletes them in a single
// batch. It returns the number of rows removed.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int64, error) {
	expired, err := s.linkRepo.ListExpired(ctx, s.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("listing expired links: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(expired))
	for _, link := range expired {
		ids = append(ids, link.ID)
	}

	deleted, err := s.linkRepo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting expired links: %w", err)
	}
	return deleted, nil
}
