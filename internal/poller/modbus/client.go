// internal/poller/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Client implements poller.Client over Modbus TCP (FC 3 only).
// The TCP connection is opened lazily by the handler and dropped after
// any transport failure, so the next read redials.
type Client struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// ExceptionError is a Modbus exception response from the device.
// The connection stays usable after one.
type ExceptionError struct {
	Function  uint8
	Exception uint8
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: fc=%d code=%d", e.Function, e.Exception)
}

// ModbusCode exposes the exception code for status reporting.
func (e *ExceptionError) ModbusCode() uint16 { return uint16(e.Exception) }

// New builds a client. It does not dial; the first read does.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ReadHoldingRegisters reads qty registers starting at addr (FC 3).
func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	if qty == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		var me *modbus.ModbusError
		if errors.As(err, &me) {
			return nil, &ExceptionError{Function: me.FunctionCode, Exception: me.ExceptionCode}
		}
		_ = c.handler.Close()
		return nil, fmt.Errorf("modbus: read %d@%d: %w", qty, addr, err)
	}

	regs := unpackRegisters(raw)
	if len(regs) != int(qty) {
		return nil, fmt.Errorf("modbus: read %d@%d: got %d registers", qty, addr, len(regs))
	}
	return regs, nil
}

// Modbus register memory order (BIG-ENDIAN)
func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
