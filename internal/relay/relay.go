// internal/relay/relay.go
package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-relay/internal/clock"
	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/logger"
	"github.com/tamzrod/modbus-relay/internal/metrics"
	"github.com/tamzrod/modbus-relay/internal/sink"
)

// DefaultCapacity holds roughly a six hour outage at one sample every
// three seconds.
const DefaultCapacity = 7200

// Options tunes one relay.
type Options struct {
	Capacity       int
	EnqueueTimeout time.Duration
	IdleWait       time.Duration
	Backoff        time.Duration

	Clock   clock.Clock
	Metrics *metrics.Metrics
}

// DefaultOptions returns production timings.
func DefaultOptions() Options {
	return Options{
		Capacity:       DefaultCapacity,
		EnqueueTimeout: 100 * time.Millisecond,
		IdleWait:       20 * time.Second,
		Backoff:        10 * time.Second,
		Clock:          clock.Real(),
	}
}

// Result is the outcome of one transmission attempt.
type Result struct {
	Delivered bool
	Kind      errors.ErrorCode
	Err       error
}

// Relay is a bounded FIFO in front of one sink, drained by a single
// background worker. Enqueue is safe for concurrent producers. The sink
// is only ever touched by the worker.
//
// A sample that keeps failing is retried forever and blocks everything
// queued behind it. Samples are only lost on enqueue overflow or shutdown.
type Relay struct {
	sink  sink.Sink
	opts  Options
	queue chan sink.Sample
	log   zerolog.Logger

	state     atomic.Int32
	startOnce sync.Once
	done      chan struct{}
}

// New builds a relay for s. The worker is not started.
func New(s sink.Sink, opts Options) (*Relay, error) {
	if s == nil {
		return nil, errors.Newf(errors.ErrInitFailed, "relay: sink required")
	}

	def := DefaultOptions()
	if opts.Capacity <= 0 {
		opts.Capacity = def.Capacity
	}
	if opts.EnqueueTimeout <= 0 {
		opts.EnqueueTimeout = def.EnqueueTimeout
	}
	if opts.IdleWait <= 0 {
		opts.IdleWait = def.IdleWait
	}
	if opts.Backoff <= 0 {
		opts.Backoff = def.Backoff
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}

	r := &Relay{
		sink:  s,
		opts:  opts,
		queue: make(chan sink.Sample, opts.Capacity),
		log:   logger.With("relay").With().Str("sink", s.Name()).Logger(),
		done:  make(chan struct{}),
	}
	opts.Metrics.ConnState(s.Name(), int(Disconnected))
	return r, nil
}

// Name is the sink name.
func (r *Relay) Name() string { return r.sink.Name() }

// Len is the number of queued samples, excluding one in flight.
func (r *Relay) Len() int { return len(r.queue) }

// Cap is the queue capacity.
func (r *Relay) Cap() int { return cap(r.queue) }

// State is the current connection state.
func (r *Relay) State() ConnState { return ConnState(r.state.Load()) }

// Done is closed once the worker has exited.
func (r *Relay) Done() <-chan struct{} { return r.done }

// Enqueue appends s, waiting at most EnqueueTimeout for space.
// It returns false if the sample was dropped.
func (r *Relay) Enqueue(s sink.Sample) bool {
	select {
	case r.queue <- s:
		r.opts.Metrics.SampleQueued(r.Name(), len(r.queue))
		return true
	default:
	}

	t := time.NewTimer(r.opts.EnqueueTimeout)
	defer t.Stop()

	select {
	case r.queue <- s:
		r.opts.Metrics.SampleQueued(r.Name(), len(r.queue))
		return true
	case <-t.C:
	}

	r.opts.Metrics.SampleDropped(r.Name())
	r.log.Error().
		Str("error_code", string(errors.ErrQueueFull)).
		Str("metric", s.Name).
		Int("capacity", cap(r.queue)).
		Msg("queue full, sample dropped")
	return false
}

// Start launches the worker once. Later calls are no-ops.
func (r *Relay) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.run(ctx)
	})
}

func (r *Relay) run(ctx context.Context) {
	defer close(r.done)

	r.log.Info().Int("capacity", cap(r.queue)).Msg("relay worker started")
	r.ensureConnected(ctx)

	idle := time.NewTimer(r.opts.IdleWait)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown(0)
			return

		case s := <-r.queue:
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			if !r.deliver(ctx, s) {
				r.shutdown(1)
				return
			}
			idle.Reset(r.opts.IdleWait)

		case <-idle.C:
			r.log.Debug().Msg("queue idle, checking connection")
			r.ensureConnected(ctx)
			idle.Reset(r.opts.IdleWait)
		}
	}
}

// deliver retries s until it is transmitted. It returns false only when
// ctx is cancelled.
func (r *Relay) deliver(ctx context.Context, s sink.Sample) bool {
	for attempt := 1; ; attempt++ {
		res := r.attempt(ctx, s)
		if res.Delivered {
			lag := r.opts.Clock.Now().Sub(time.Unix(s.Timestamp, 0))
			r.opts.Metrics.SampleDelivered(r.Name(), len(r.queue), lag)
			r.log.Debug().Str("metric", s.Name).Int("attempt", attempt).Msg("sample delivered")
			return true
		}

		r.opts.Metrics.TransmitFailed(r.Name(), string(res.Kind))
		r.log.Warn().
			Str("error_code", string(res.Kind)).
			Err(res.Err).
			Str("metric", s.Name).
			Int("attempt", attempt).
			Dur("backoff", r.opts.Backoff).
			Msg("transmit failed, retrying")

		r.discard()

		if err := r.opts.Clock.Sleep(ctx, r.opts.Backoff); err != nil {
			return false
		}
	}
}

func (r *Relay) attempt(ctx context.Context, s sink.Sample) Result {
	if ctx.Err() != nil {
		return Result{Kind: errors.ErrNotConnected, Err: ctx.Err()}
	}
	if err := r.ensureConnected(ctx); err != nil {
		return Result{Kind: errors.CodeOf(err), Err: err}
	}
	if err := r.sink.Transmit(ctx, s); err != nil {
		kind := errors.CodeOf(err)
		if kind == "" {
			kind = errors.ErrSendFailed
		}
		return Result{Kind: kind, Err: err}
	}
	return Result{Delivered: true}
}

// ensureConnected connects only when there is no live connection.
func (r *Relay) ensureConnected(ctx context.Context) error {
	if r.sink.Connected() {
		return nil
	}
	if r.State() == Connected {
		r.fire(EventLost)
		_ = r.sink.Close()
	}

	r.fire(EventDial)
	r.log.Info().Msg("connecting")
	if err := r.sink.Connect(ctx); err != nil {
		r.fire(EventDialFailed)
		if errors.CodeOf(err) == "" {
			err = errors.Wrap(errors.ErrConnectFailed, err)
		}
		r.log.Error().Str("error_code", string(errors.CodeOf(err))).Err(err).Msg("connect failed")
		return err
	}
	r.fire(EventDialOK)
	return nil
}

// discard drops the current connection so the next attempt reconnects.
func (r *Relay) discard() {
	if err := r.sink.Close(); err != nil {
		r.log.Debug().Err(err).Msg("close after failure")
	}
	if r.State() == Connected {
		r.fire(EventSendFailed)
	}
}

func (r *Relay) shutdown(inFlight int) {
	lost := len(r.queue) + inFlight
	if err := r.sink.Close(); err != nil {
		r.log.Debug().Err(err).Msg("close on shutdown")
	}
	r.fire(EventClosed)
	r.log.Info().Int("lost", lost).Msg("relay worker stopped")
}

func (r *Relay) fire(ev ConnEvent) {
	prev := r.State()
	next, ok := Next(prev, ev)
	if !ok {
		r.log.Debug().Stringer("state", prev).Stringer("event", ev).Msg("ignored connection event")
		return
	}
	r.state.Store(int32(next))
	r.opts.Metrics.ConnState(r.Name(), int(next))
	if next != prev {
		r.log.Debug().Stringer("from", prev).Stringer("to", next).Stringer("event", ev).Msg("connection state")
	}
}
