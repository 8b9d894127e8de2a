// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Reaper drops stale state and reports how many entries it removed.
type Reaper interface {
	ReapIdle() int
}

type Scheduler struct {
	c *cron.Cron
}

// StartSessionReaper runs r on schedule (cron spec or "@every 1m").
// Overlapping runs are skipped.
func StartSessionReaper(schedule string, r Reaper) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(schedule, func() {
		if n := r.ReapIdle(); n > 0 {
			log.Printf("[SESSION-REAPER] dropped %d idle checkout session(s)", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("session reaper schedule %q: %w", schedule, err)
	}

	log.Printf("[SESSION-REAPER] started schedule=%q", schedule)
	c.Start()
	return &Scheduler{c: c}, nil
}

// Stop waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
