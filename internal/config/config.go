// internal/config/config.go
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/tamzrod/modbus-relay/internal/registers"
)

type Config struct {
	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"logfile"`

	Modbus ModbusConfig `yaml:"lto_modbus"`
	Poll   PollConfig   `yaml:"poll"`
	Queue  QueueConfig  `yaml:"queue"`

	// Prefix is prepended to every register name. Nil means "lto.".
	Prefix *string `yaml:"prefix"`

	// Sinks are optional; a nil section disables the sink.
	Graphite *GraphiteConfig `yaml:"graphite"`
	MQTT     *MQTTConfig     `yaml:"mqtt"`

	Metrics MetricsConfig `yaml:"metrics"`

	// Registers replaces the built-in LTO catalog when non-empty.
	Registers []RegisterConfig `yaml:"registers"`
}

// ---- SOURCE ----

type ModbusConfig struct {
	TCPAddr   string `yaml:"tcp_addr"`
	Port      int    `yaml:"port"`
	UnitID    *uint8 `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Endpoint is host:port of the device.
func (m ModbusConfig) Endpoint() string {
	return net.JoinHostPort(m.TCPAddr, strconv.Itoa(m.Port))
}

// ---- POLL ----

type PollConfig struct {
	IntervalS     int  `yaml:"interval_s"`
	StartupDelayS *int `yaml:"startup_delay_s"`
}

// ---- QUEUE ----

type QueueConfig struct {
	Capacity         int `yaml:"capacity"`
	EnqueueTimeoutMs int `yaml:"enqueue_timeout_ms"`
	IdleWaitS        int `yaml:"idle_wait_s"`
	BackoffS         int `yaml:"backoff_s"`
}

// ---- SINKS ----

type GraphiteConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TLS       *bool  `yaml:"tls"`
	CAFile    string `yaml:"tls_ca_file"`
	CertFile  string `yaml:"tls_cert_file"`
	KeyFile   string `yaml:"tls_key_file"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

func (g GraphiteConfig) Addr() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

type MQTTConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	ClientID   string `yaml:"client_id"`
	KeepAliveS int    `yaml:"keepalive_s"`
	QoS        int    `yaml:"qos"`
}

func (m MQTTConfig) Addr() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// ---- REGISTERS ----

type RegisterConfig struct {
	Address    uint16   `yaml:"address"`
	Name       string   `yaml:"name"`
	Signed     bool     `yaml:"signed"`
	Multiplier *float64 `yaml:"multiplier"`
	Round      *int     `yaml:"round"`
}

// Catalog returns the configured registers, or the built-in LTO catalog.
func (c *Config) Catalog() []registers.Def {
	if len(c.Registers) == 0 {
		return registers.LTO()
	}

	defs := make([]registers.Def, 0, len(c.Registers))
	for _, r := range c.Registers {
		var opts []registers.Option
		if r.Signed {
			opts = append(opts, registers.Signed())
		}
		if r.Multiplier != nil {
			opts = append(opts, registers.Scale(*r.Multiplier))
		}
		if r.Round != nil {
			opts = append(opts, registers.Round(*r.Round))
		}
		defs = append(defs, registers.Reg(r.Address, r.Name, opts...))
	}
	return defs
}

// MetricPrefix is the prefix applied to register names.
func (c *Config) MetricPrefix() string {
	if c.Prefix == nil {
		return DefaultPrefix
	}
	return *c.Prefix
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
func sec(v int) time.Duration { return time.Duration(v) * time.Second }

func (m ModbusConfig) Timeout() time.Duration { return ms(m.TimeoutMs) }
func (p PollConfig) Interval() time.Duration { return sec(p.IntervalS) }
func (q QueueConfig) EnqueueTimeout() time.Duration { return ms(q.EnqueueTimeoutMs) }
func (q QueueConfig) IdleWait() time.Duration { return sec(q.IdleWaitS) }
func (q QueueConfig) Backoff() time.Duration { return sec(q.BackoffS) }
func (g GraphiteConfig) Timeout() time.Duration { return ms(g.TimeoutMs) }
func (m MQTTConfig) KeepAlive() time.Duration { return sec(m.KeepAliveS) }

// StartupDelay is zero when unset; Normalize fills the default.
func (p PollConfig) StartupDelay() time.Duration {
	if p.StartupDelayS == nil {
		return 0
	}
	return sec(*p.StartupDelayS)
}
