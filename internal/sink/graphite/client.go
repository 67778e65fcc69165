// internal/sink/graphite/client.go
package graphite

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/sink"
)

// Config is the Graphite plaintext-protocol endpoint.
type Config struct {
	Addr    string
	Timeout time.Duration

	TLS      bool
	CAFile   string
	CertFile string
	KeyFile  string
}

// Client implements sink.Sink over one TCP (optionally TLS) stream.
// One line per sample.
type Client struct {
	addr    string
	timeout time.Duration
	tlsConf *tls.Config
	conn    net.Conn
}

// New validates cfg and loads TLS material. It does not dial.
func New(cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.Newf(errors.ErrInvalidConfig, "graphite: address required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	c := &Client{
		addr:    cfg.Addr,
		timeout: cfg.Timeout,
	}

	if cfg.TLS {
		tc, err := loadTLS(cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidConfig, err)
		}
		c.tlsConf = tc
	}

	return c, nil
}

func loadTLS(cfg Config) (*tls.Config, error) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("graphite: read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("graphite: no certificates in %s", cfg.CAFile)
		}
		tc.RootCAs = pool
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("graphite: load client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}

	return tc, nil
}

func (c *Client) Name() string { return "graphite" }

func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	nd := &net.Dialer{Timeout: c.timeout}

	var (
		conn net.Conn
		err  error
	)
	if c.tlsConf != nil {
		td := &tls.Dialer{NetDialer: nd, Config: c.tlsConf}
		conn, err = td.DialContext(ctx, "tcp", c.addr)
	} else {
		conn, err = nd.DialContext(ctx, "tcp", c.addr)
	}
	if err != nil {
		return errors.Wrap(errors.ErrConnectFailed, err)
	}

	c.conn = conn
	return nil
}

func (c *Client) Connected() bool { return c.conn != nil }

func (c *Client) Transmit(_ context.Context, s sink.Sample) error {
	if c.conn == nil {
		return errors.New(errors.ErrNotConnected)
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := writeAll(c.conn, []byte(Line(s))); err != nil {
		return errors.Wrap(errors.ErrSendFailed, err)
	}
	return nil
}

// Close drops the connection. Safe to call when not connected.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Line renders one sample in Graphite plaintext format.
func Line(s sink.Sample) string {
	return fmt.Sprintf("%s %s %d\n", s.Name, s.FormatValue(), s.Timestamp)
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

var _ sink.Sink = (*Client)(nil)
