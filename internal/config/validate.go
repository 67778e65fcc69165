// internal/config/validate.go
package config

import (
	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/registers"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return invalid("config is empty")
	}

	// ------------------------------------------------------------
	// SOURCE
	// ------------------------------------------------------------

	if cfg.Modbus.TCPAddr == "" {
		return invalid("lto_modbus.tcp_addr is required")
	}
	if !validPort(cfg.Modbus.Port) {
		return invalid("lto_modbus.port %d out of range", cfg.Modbus.Port)
	}
	if cfg.Modbus.TimeoutMs < 0 {
		return invalid("lto_modbus.timeout_ms must be > 0")
	}

	// ------------------------------------------------------------
	// SCHEDULE + QUEUE
	// ------------------------------------------------------------

	if cfg.Poll.IntervalS <= 0 {
		return invalid("poll.interval_s must be > 0")
	}
	if cfg.Poll.StartupDelayS != nil && *cfg.Poll.StartupDelayS < 0 {
		return invalid("poll.startup_delay_s must be >= 0")
	}
	if cfg.Queue.Capacity <= 0 {
		return invalid("queue.capacity must be > 0")
	}
	if cfg.Queue.EnqueueTimeoutMs <= 0 || cfg.Queue.IdleWaitS <= 0 || cfg.Queue.BackoffS <= 0 {
		return invalid("queue timings must be > 0")
	}

	// ------------------------------------------------------------
	// SINKS (each optional)
	// ------------------------------------------------------------

	if g := cfg.Graphite; g != nil {
		if g.Host == "" {
			return invalid("graphite.host is required")
		}
		if !validPort(g.Port) {
			return invalid("graphite.port %d out of range", g.Port)
		}
	}

	if m := cfg.MQTT; m != nil {
		if m.Host == "" {
			return invalid("mqtt.host is required")
		}
		if !validPort(m.Port) {
			return invalid("mqtt.port %d out of range", m.Port)
		}
		if m.QoS < 0 || m.QoS > 2 {
			return invalid("mqtt.qos must be 0, 1 or 2")
		}
	}

	// ------------------------------------------------------------
	// REGISTER CATALOG
	// ------------------------------------------------------------

	if err := registers.CheckSorted(cfg.Catalog()); err != nil {
		return errors.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func invalid(format string, args ...any) error {
	return errors.Newf(errors.ErrInvalidConfig, format, args...)
}
