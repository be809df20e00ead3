package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCleanupAge      = 30 * 24 * time.Hour
	DefaultCleanupSchedule = "0 3 * * *" // daily at 03:00
)

// Cleanup sweeps stale session records on a cron schedule. A record whose
// LastUsed is older than the configured age is removed; the next execution
// in that directory simply starts a fresh session.
type Cleanup struct {
	stores []*Store
	maxAge time.Duration
	cron   *cron.Cron
}

// NewCleanup creates a cleanup sweeper over the given stores.
func NewCleanup(stores []*Store, maxAge time.Duration) *Cleanup {
	if maxAge <= 0 {
		maxAge = DefaultCleanupAge
	}
	return &Cleanup{
		stores: stores,
		maxAge: maxAge,
	}
}

// Start schedules periodic sweeps. An empty schedule uses the default.
func (c *Cleanup) Start(schedule string) error {
	if c.cron != nil {
		return fmt.Errorf("cleanup is already running")
	}
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(schedule, func() { c.Sweep() }); err != nil {
		c.cron = nil
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	c.cron.Start()

	log.Info().
		Str("schedule", schedule).
		Dur("max_age", c.maxAge).
		Msg("Session cleanup started")
	return nil
}

// Stop halts scheduled sweeps.
func (c *Cleanup) Stop() {
	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
		log.Info().Msg("Session cleanup stopped")
	}
}

// Sweep removes stale records across all stores and returns the number
// removed. Failures are logged and skipped; a sweep never aborts.
func (c *Cleanup) Sweep() int {
	cutoff := time.Now().Add(-c.maxAge)
	removed := 0

	for _, store := range c.stores {
		for _, rec := range store.List() {
			if rec.LastUsed.After(cutoff) {
				continue
			}
			if store.Clear(rec.WorkingDir) {
				removed++
				log.Debug().
					Str("assistant", store.Assistant()).
					Str("dir", rec.WorkingDir).
					Time("last_used", rec.LastUsed).
					Msg("Stale session removed")
			}
		}
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Swept stale sessions")
	}
	return removed
}
