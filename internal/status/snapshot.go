// internal/status/snapshot.go
package status

// Snapshot is the current health of the register source.
// It contains no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
}
