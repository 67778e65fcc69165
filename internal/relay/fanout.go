// internal/relay/fanout.go
package relay

import (
	"context"

	"github.com/tamzrod/modbus-relay/internal/clock"
	"github.com/tamzrod/modbus-relay/internal/logger"
	"github.com/tamzrod/modbus-relay/internal/registers"
	"github.com/tamzrod/modbus-relay/internal/sink"
)

// Fanout is the producer handle. It timestamps each value once and hands
// the same sample to every relay. With no relays Publish does nothing.
type Fanout struct {
	prefix string
	clock  clock.Clock
	relays []*Relay
}

// NewFanout builds a fan-out over relays. Metric names are prefix+name.
func NewFanout(prefix string, c clock.Clock, relays ...*Relay) *Fanout {
	if c == nil {
		c = clock.Real()
	}
	return &Fanout{prefix: prefix, clock: c, relays: relays}
}

// Publish queues one value on every relay. It never blocks longer than
// the relays' enqueue timeouts and never fails. Values of scaled
// registers are flagged so sinks render them with a fraction.
func (f *Fanout) Publish(d registers.Def, value float64) {
	s := sink.Sample{
		Name:      f.prefix + d.Name,
		Value:     value,
		Timestamp: f.clock.Now().Unix(),
		Decimal:   d.Multiplier != nil,
	}
	logger.Debug().Str("metric", s.Name).Float64("value", value).Msg("sample")

	for _, r := range f.relays {
		r.Enqueue(s)
	}
}

// Start launches every relay worker.
func (f *Fanout) Start(ctx context.Context) {
	for _, r := range f.relays {
		r.Start(ctx)
	}
}

// Wait blocks until every started worker has exited.
func (f *Fanout) Wait() {
	for _, r := range f.relays {
		<-r.Done()
	}
}

// Relays returns the configured relays.
func (f *Fanout) Relays() []*Relay { return f.relays }
