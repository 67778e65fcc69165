// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/registers"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Minimal(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "mqtt-lto.yaml", `
lto_modbus:
  tcp_addr: 10.0.0.5
mqtt:
  host: broker.local
  port: 1883
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:502", cfg.Modbus.Endpoint())
	assert.Equal(t, "broker.local:1883", cfg.MQTT.Addr())
	assert.Nil(t, cfg.Graphite)
	assert.Equal(t, registers.LTO(), cfg.Catalog())
}

func TestLoad_CustomRegisters(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "c.yaml", `
lto_modbus:
  tcp_addr: 10.0.0.5
  unit_id: 3
prefix: ahu.
registers:
  - {address: 6, name: temp, signed: true, multiplier: 0.1, round: 3}
  - {address: 7, name: fan}
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, uint8(3), *cfg.Modbus.UnitID)
	assert.Equal(t, "ahu.", cfg.MetricPrefix())

	defs := cfg.Catalog()
	require.Len(t, defs, 2)
	assert.True(t, defs[0].Signed)
	require.NotNil(t, defs[0].Multiplier)
	assert.Equal(t, 0.1, *defs[0].Multiplier)
	require.NotNil(t, defs[0].RoundDigits)
	assert.Equal(t, 3, *defs[0].RoundDigits)
	assert.Nil(t, defs[1].Multiplier)
}

func TestLoad_Include(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sinks/graphite.yaml", `
host: carbon.example
port: 2004
tls: false
`)
	p := writeFile(t, dir, "main.yaml", `
lto_modbus:
  tcp_addr: 10.0.0.5
graphite: !include sinks/graphite.yaml
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.NotNil(t, cfg.Graphite)
	assert.Equal(t, "carbon.example:2004", cfg.Graphite.Addr())
	assert.False(t, *cfg.Graphite.TLS)
}

func TestLoad_NestedIncludeRelativeToIncluder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/regs.yaml", `
- {address: 3, name: fan}
`)
	writeFile(t, dir, "a/source.yaml", `
tcp_addr: 10.0.0.9
port: 5020
`)
	writeFile(t, dir, "a/base.yaml", `
lto_modbus: !include source.yaml
registers: !include regs.yaml
`)
	p := writeFile(t, dir, "main.yaml", `!include a/base.yaml`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9:5020", cfg.Modbus.Endpoint())
	require.Len(t, cfg.Catalog(), 1)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "lto_modbus: !include b.yaml\n")
	writeFile(t, dir, "b.yaml", "tcp_addr: !include a.yaml\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "cycle")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoad_MissingInclude(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.yaml", "graphite: !include gone.yaml\n")

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.yaml", "lto_modbus: [unclosed\n")

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "c.yaml", `
lto_modbus:
  tcp_addr: 10.0.0.5
poll:
  interval_s: -3
`)

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestLoad_EmptyFileFailsValidation(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "empty.yaml", "")

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}
