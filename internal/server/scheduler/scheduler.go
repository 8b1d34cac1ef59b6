// Package scheduler fires a job once a day at a fixed local wall time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authservice/internal/logging"
)

// Job is the unit of work run at every firing.
type Job func(ctx context.Context) error

type Daily struct {
	name   string
	hour   int
	minute int
	job    Job
	log    logging.Logger
	now    func() time.Time
	// after is time.After, swapped in tests.
	after func(d time.Duration) <-chan time.Time
}

func NewDaily(name string, hour, minute int, job Job, log logging.Logger) (*Daily, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("scheduler: invalid time %02d:%02d", hour, minute)
	}
	return &Daily{
		name:   name,
		hour:   hour,
		minute: minute,
		job:    job,
		log:    log.With("module", "scheduler", "job", name),
		now:    time.Now,
		after:  time.After,
	}, nil
}

// Run blocks until ctx is done. A failing job is logged and the next
// firing runs as usual.
func (d *Daily) Run(ctx context.Context) {
	for {
		next := nextRun(d.now(), d.hour, d.minute)
		d.log.Debug(ctx, "next run scheduled", "at", next)

		select {
		case <-ctx.Done():
			return
		case <-d.after(next.Sub(d.now())):
		}

		d.fire(ctx)
	}
}

func (d *Daily) fire(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error(ctx, "job panicked", "panic", p)
		}
	}()

	start := d.now()
	if err := d.job(ctx); err != nil {
		d.log.Error(ctx, "job failed", "error", err)
		return
	}
	d.log.Info(ctx, "job finished", "took", d.now().Sub(start))
}

// nextRun is the first hour:minute strictly after now, in now's location.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}
