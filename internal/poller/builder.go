// internal/poller/builder.go
package poller

import (
	"github.com/tamzrod/modbus-relay/internal/clock"
	cfg "github.com/tamzrod/modbus-relay/internal/config"
	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/metrics"
	pmodbus "github.com/tamzrod/modbus-relay/internal/poller/modbus"
)

// Build constructs a Poller over Modbus TCP from a loaded config.
// The device is not dialed here; the first read opens the connection and
// a transport failure drops it so a later cycle redials.
// The returned closer releases the TCP connection.
func Build(c *cfg.Config, m *metrics.Metrics) (*Poller, func() error, error) {
	var unitID uint8 = cfg.DefaultUnitID
	if c.Modbus.UnitID != nil {
		unitID = *c.Modbus.UnitID
	}

	client, err := pmodbus.New(pmodbus.Config{
		Endpoint: c.Modbus.Endpoint(),
		UnitID:   unitID,
		Timeout:  c.Modbus.Timeout(),
	})
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrInitFailed, err)
	}

	p, err := New(
		Config{
			Registers:    c.Catalog(),
			Interval:     c.Poll.Interval(),
			StartupDelay: c.Poll.StartupDelay(),
			Clock:        clock.Real(),
			Metrics:      m,
		},
		client,
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(errors.ErrInitFailed, err)
	}

	return p, client.Close, nil
}
