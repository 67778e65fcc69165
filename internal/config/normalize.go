// internal/config/normalize.go
package config

const (
	DefaultModbusPort      = 502
	DefaultUnitID          = 1
	DefaultModbusTimeoutMs = 2000

	DefaultIntervalS     = 30
	DefaultStartupDelayS = 2

	DefaultQueueCapacity    = 7200
	DefaultEnqueueTimeoutMs = 100
	DefaultIdleWaitS        = 20
	DefaultBackoffS         = 10

	DefaultPrefix = "lto."

	DefaultCAFile          = "cacert.pem"
	DefaultCertFile        = "meter-cert.pem"
	DefaultKeyFile         = "meter-key.pem"
	DefaultGraphiteTimeout = 5000

	DefaultMQTTClientID  = "mqtt-lto"
	DefaultMQTTKeepAlive = 30
)

// Normalize fills defaults for every unset value.
// It is allowed to mutate configuration.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	m := &cfg.Modbus
	if m.Port == 0 {
		m.Port = DefaultModbusPort
	}
	if m.UnitID == nil {
		id := uint8(DefaultUnitID)
		m.UnitID = &id
	}
	if m.TimeoutMs == 0 {
		m.TimeoutMs = DefaultModbusTimeoutMs
	}

	p := &cfg.Poll
	if p.IntervalS == 0 {
		p.IntervalS = DefaultIntervalS
	}
	if p.StartupDelayS == nil {
		d := DefaultStartupDelayS
		p.StartupDelayS = &d
	}

	q := &cfg.Queue
	if q.Capacity == 0 {
		q.Capacity = DefaultQueueCapacity
	}
	if q.EnqueueTimeoutMs == 0 {
		q.EnqueueTimeoutMs = DefaultEnqueueTimeoutMs
	}
	if q.IdleWaitS == 0 {
		q.IdleWaitS = DefaultIdleWaitS
	}
	if q.BackoffS == 0 {
		q.BackoffS = DefaultBackoffS
	}

	if cfg.Prefix == nil {
		prefix := DefaultPrefix
		cfg.Prefix = &prefix
	}

	// Graphite always ran over TLS unless told otherwise.
	if g := cfg.Graphite; g != nil {
		if g.TLS == nil {
			on := true
			g.TLS = &on
		}
		if *g.TLS {
			if g.CAFile == "" {
				g.CAFile = DefaultCAFile
			}
			if g.CertFile == "" {
				g.CertFile = DefaultCertFile
			}
			if g.KeyFile == "" {
				g.KeyFile = DefaultKeyFile
			}
		}
		if g.TimeoutMs == 0 {
			g.TimeoutMs = DefaultGraphiteTimeout
		}
	}

	if mq := cfg.MQTT; mq != nil {
		if mq.ClientID == "" {
			mq.ClientID = DefaultMQTTClientID
		}
		if mq.KeepAliveS == 0 {
			mq.KeepAliveS = DefaultMQTTKeepAlive
		}
	}
}
