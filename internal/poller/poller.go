// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tamzrod/modbus-relay/internal/clock"
	"github.com/tamzrod/modbus-relay/internal/metrics"
	"github.com/tamzrod/modbus-relay/internal/registers"
	"github.com/tamzrod/modbus-relay/internal/status"
)

// Client abstracts the Modbus operation the poller needs.
type Client interface {
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
}

// Output receives decoded values. It must not block on network IO.
type Output interface {
	Publish(d registers.Def, value float64)
}

// Config is the runtime config the poller needs.
type Config struct {
	Registers []registers.Def

	Interval     time.Duration
	Tick         time.Duration
	StartupDelay time.Duration

	Clock   clock.Clock
	Metrics *metrics.Metrics
}

// Poller reads the catalog batch by batch on a fixed schedule.
type Poller struct {
	cfg     Config
	client  Client
	batches []Batch
	status  status.Tracker
	ready   atomic.Bool
}

// New creates a poller with immutable config. Batches are planned once.
func New(cfg Config, client Client) (*Poller, error) {
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.StartupDelay < 0 {
		return nil, errors.New("poller: startup delay must be >= 0")
	}
	if len(cfg.Registers) == 0 {
		return nil, errors.New("poller: at least one register required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}

	batches, err := Plan(cfg.Registers)
	if err != nil {
		return nil, fmt.Errorf("poller: %w", err)
	}

	return &Poller{cfg: cfg, client: client, batches: batches}, nil
}

// Batches returns the planned reads.
func (p *Poller) Batches() []Batch { return p.batches }

// Ready reports whether the startup delay has passed.
func (p *Poller) Ready() bool { return p.ready.Load() }

// Status returns the source health after the last cycle.
func (p *Poller) Status() status.Snapshot { return p.status.Snapshot() }

// PollOnce performs exactly one poll cycle.
// A failed batch is skipped; the remaining batches are still read.
func (p *Poller) PollOnce() PollResult {
	return p.poll(nil)
}

// poll reads every batch in address order. emit, when set, receives each
// batch's readings as soon as that batch has been read, so later (possibly
// timing out) batches never delay earlier values.
func (p *Poller) poll(emit func([]Reading)) PollResult {
	res := PollResult{At: p.cfg.Clock.Now()}

	for _, b := range p.batches {
		regs, err := p.client.ReadHoldingRegisters(b.Start, b.Count)
		if err == nil && len(regs) < int(b.Count) {
			err = fmt.Errorf("short read: got %d registers, want %d", len(regs), b.Count)
		}
		if err != nil {
			res.Failed = append(res.Failed, BatchError{Batch: b, Err: err})
			continue
		}

		readings := make([]Reading, 0, len(b.Members))
		for i, d := range b.Members {
			readings = append(readings, Reading{
				Def:   d,
				Raw:   regs[i],
				Value: registers.Decode(d, regs[i]),
			})
		}
		if emit != nil {
			emit(readings)
		}
		res.Readings = append(res.Readings, readings...)
	}

	return res
}
