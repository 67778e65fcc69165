// internal/poller/types.go
package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/modbus-relay/internal/registers"
)

// Batch is one contiguous register range served by a single read.
type Batch struct {
	Start   uint16
	Count   uint16
	Members []registers.Def
}

// End is the last address in the batch (inclusive).
func (b Batch) End() uint16 { return b.Start + b.Count - 1 }

func (b Batch) String() string {
	return fmt.Sprintf("%d-%d", b.Start, b.End())
}

// Reading is one decoded register value.
type Reading struct {
	Def   registers.Def
	Raw   uint16
	Value float64
}

// BatchError records a batch skipped this cycle.
type BatchError struct {
	Batch Batch
	Err   error
}

// PollResult is what one poll cycle produced.
// A failed batch contributes no readings; other batches are unaffected.
type PollResult struct {
	At       time.Time // cycle start
	Readings []Reading
	Failed   []BatchError
}

// Err joins all batch errors, or nil when every batch succeeded.
func (r PollResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("batch %s: %w", f.Batch, f.Err))
	}
	return errors.Join(errs...)
}
