// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state, before the first poll cycle.
const HealthUnknown uint16 = 0

// HealthOK represents a source whose last cycle read every batch.
const HealthOK uint16 = 1

// HealthError represents a source whose last cycle failed at least one batch.
const HealthError uint16 = 2

// ---- LIMITS ----

// MaxSecondsInError is where SecondsInError saturates.
const MaxSecondsInError = 65535

// GenericErrorCode is reported when an error carries no device code.
const GenericErrorCode uint16 = 1
