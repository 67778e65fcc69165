// internal/status/tracker.go
package status

import (
	"errors"
	"time"
)

// Tracker folds poll cycle outcomes into a Snapshot.
// Not safe for concurrent use; the poller goroutine owns it.
type Tracker struct {
	snap       Snapshot
	errorSince time.Time
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe records one cycle outcome at now and reports whether the
// snapshot changed.
func (t *Tracker) Observe(err error, now time.Time) (Snapshot, bool) {
	prev := t.snap

	if err == nil {
		// Recovery resets error bookkeeping.
		t.snap = Snapshot{Health: HealthOK}
		t.errorSince = time.Time{}
		return t.snap, t.snap != prev
	}

	if t.snap.Health != HealthError {
		t.errorSince = now
	}
	t.snap.Health = HealthError
	t.snap.LastErrorCode = ErrorCode(err)

	secs := now.Sub(t.errorSince) / time.Second
	if secs > MaxSecondsInError {
		secs = MaxSecondsInError
	}
	if secs < 0 {
		secs = 0
	}
	t.snap.SecondsInError = uint16(secs)

	return t.snap, t.snap != prev
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns GenericErrorCode.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ ErrorCode() uint16 }
	type coderB interface{ ModbusCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.ErrorCode()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ModbusCode()
	}

	return GenericErrorCode
}
