// internal/poller/runner.go
package poller

import (
	"context"
	"time"

	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/logger"
	"github.com/tamzrod/modbus-relay/internal/status"
)

// Run polls until ctx is cancelled. One goroutine. No overlap.
//
// After the startup delay the loop wakes every Tick and runs a cycle once
// the deadline has passed. A cycle that overruns the interval pushes the
// next deadline to completion+Interval instead of firing catch-up cycles.
func (p *Poller) Run(ctx context.Context, out Output) {
	log := logger.With("poller")
	c := p.cfg.Clock

	next := c.Now()

	log.Info().
		Dur("interval", p.cfg.Interval).
		Int("batches", len(p.batches)).
		Dur("startup_delay", p.cfg.StartupDelay).
		Msg("poller starting")

	if err := c.Sleep(ctx, p.cfg.StartupDelay); err != nil {
		return
	}
	p.ready.Store(true)
	log.Info().Msg("startup delay done")

	for {
		if err := c.Sleep(ctx, p.cfg.Tick); err != nil {
			log.Info().Msg("poller stopped")
			return
		}

		if c.Now().Before(next) {
			continue
		}

		p.cycle(out)
		next = NextDeadline(next, p.cfg.Interval, c.Now())
	}
}

// NextDeadline advances a deadline by interval, or restarts the schedule
// from now when the cycle that just finished overran it.
func NextDeadline(prev time.Time, interval time.Duration, now time.Time) time.Time {
	candidate := prev.Add(interval)
	if !now.Before(candidate) {
		return now.Add(interval)
	}
	return candidate
}

func (p *Poller) cycle(out Output) {
	log := logger.With("poller")

	res := p.poll(func(rs []Reading) {
		for _, r := range rs {
			out.Publish(r.Def, r.Value)
		}
	})

	for _, f := range res.Failed {
		p.cfg.Metrics.ReadFailed()
		err := errors.Wrap(errors.ErrReadFailed, f.Err)
		log.Warn().
			Str("error_code", string(err.Code())).
			Err(err).
			Stringer("batch", f.Batch).
			Msg("batch skipped")
	}

	done := p.cfg.Clock.Now()
	snap, changed := p.status.Observe(res.Err(), done)
	p.cfg.Metrics.SourceStatus(snap.Health, snap.SecondsInError)
	if changed && snap.Health == status.HealthOK {
		log.Info().Msg("register source healthy")
	}

	took := done.Sub(res.At)
	p.cfg.Metrics.PollCycle(took)
	log.Debug().
		Int("readings", len(res.Readings)).
		Int("failed", len(res.Failed)).
		Dur("took", took).
		Msg("poll cycle")
}
