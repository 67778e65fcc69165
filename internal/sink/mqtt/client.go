// internal/sink/mqtt/client.go
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/logger"
	"github.com/tamzrod/modbus-relay/internal/sink"
)

// Config is the broker connection.
type Config struct {
	Addr      string
	ClientID  string
	KeepAlive time.Duration
	Timeout   time.Duration
	QoS       byte
}

// publisher is the part of paho.Client the sink uses.
type publisher interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type dialFunc func(ctx context.Context, opts *paho.ClientOptions, timeout time.Duration) (publisher, error)

// Client implements sink.Sink by publishing one message per sample.
// Library auto-reconnect is off: the relay decides when to reconnect.
type Client struct {
	cfg  Config
	dial dialFunc
	pub  publisher

	// lost is set from paho's connection-lost callback goroutine.
	lost atomic.Bool
}

// New validates cfg. It does not dial.
func New(cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.Newf(errors.ErrInvalidConfig, "mqtt: address required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "mqtt-lto"
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.QoS > 2 {
		return nil, errors.Newf(errors.ErrInvalidConfig, "mqtt: qos must be 0, 1 or 2")
	}
	return &Client{cfg: cfg, dial: dialPaho}, nil
}

func dialPaho(ctx context.Context, opts *paho.ClientOptions, timeout time.Duration) (publisher, error) {
	cl := paho.NewClient(opts)
	tok := cl.Connect()

	select {
	case <-tok.Done():
	case <-time.After(timeout):
		cl.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connect timeout after %s", timeout)
	case <-ctx.Done():
		cl.Disconnect(0)
		return nil, ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return cl, nil
}

func (c *Client) Name() string { return "mqtt" }

func (c *Client) options() *paho.ClientOptions {
	log := logger.With("mqtt")
	return paho.NewClientOptions().
		AddBroker("tcp://" + c.cfg.Addr).
		SetClientID(c.cfg.ClientID).
		SetKeepAlive(c.cfg.KeepAlive).
		SetConnectTimeout(c.cfg.Timeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOnConnectHandler(func(paho.Client) {
			log.Info().Str("broker", c.cfg.Addr).Msg("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.lost.Store(true)
			log.Warn().Err(err).Str("broker", c.cfg.Addr).Msg("mqtt disconnected")
		})
}

func (c *Client) Connect(ctx context.Context) error {
	if c.Connected() {
		return nil
	}
	if c.pub != nil {
		c.pub.Disconnect(0)
		c.pub = nil
	}

	c.lost.Store(false)
	pub, err := c.dial(ctx, c.options(), c.cfg.Timeout)
	if err != nil {
		return errors.Wrap(errors.ErrConnectFailed, err)
	}
	c.pub = pub
	return nil
}

func (c *Client) Connected() bool {
	return c.pub != nil && !c.lost.Load() && c.pub.IsConnectionOpen()
}

func (c *Client) Transmit(_ context.Context, s sink.Sample) error {
	if c.pub == nil {
		return errors.New(errors.ErrNotConnected)
	}

	tok := c.pub.Publish(Topic(s.Name), c.cfg.QoS, false, s.FormatValue())
	if !tok.WaitTimeout(c.cfg.Timeout) {
		return errors.Wrap(errors.ErrSendFailed, fmt.Errorf("mqtt: publish timeout after %s", c.cfg.Timeout))
	}
	if err := tok.Error(); err != nil {
		return errors.Wrap(errors.ErrSendFailed, err)
	}
	return nil
}

// Close disconnects. Safe to call when not connected.
func (c *Client) Close() error {
	if c.pub == nil {
		return nil
	}
	c.pub.Disconnect(250)
	c.pub = nil
	return nil
}

// Topic maps a dotted metric name onto an MQTT topic.
func Topic(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

var _ sink.Sink = (*Client)(nil)
