// internal/sink/sink.go
package sink

import (
	"context"
	"strconv"
	"strings"
)

// Sample is one metric value ready for delivery.
// Timestamp is unix seconds taken when the sample was queued.
type Sample struct {
	Name      string
	Value     float64
	Timestamp int64

	// Decimal marks a scaled value; it always renders with a fraction
	// ("30.0"), while raw counts render as integers ("30").
	Decimal bool
}

// FormatValue renders the value as the shortest decimal that round-trips.
func (s Sample) FormatValue() string {
	v := strconv.FormatFloat(s.Value, 'f', -1, 64)
	if s.Decimal && !strings.Contains(v, ".") {
		v += ".0"
	}
	return v
}

// Sink is one telemetry destination. A Sink is driven by exactly one
// goroutine (its relay worker) and needs no internal locking for that use.
//
// Connect is connect-if-absent: it must not replace a live connection.
// Transmit and Connect failures are coded errors (connect_failed,
// send_failed, not_connected).
type Sink interface {
	Name() string
	Connect(ctx context.Context) error
	Connected() bool
	Transmit(ctx context.Context, s Sample) error
	Close() error
}
