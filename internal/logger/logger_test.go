// internal/logger/logger_test.go
package logger

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-relay/internal/errors"
)

func TestErrorWithCodeFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Out: &buf})

	ErrorWithCode(errors.Wrap(errors.ErrQueueFull, stderrors.New("capacity 2"))).Msg("sample dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "queue_full", entry["error_code"])
	assert.Equal(t, "sample dropped", entry["message"])
}

func TestDebugSuppressedUnlessEnabled(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Out: &buf})
	Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	Init(Options{Out: &buf, Debug: true})
	l := With("relay")
	l.Debug().Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "relay", entry["component"])
}

func TestNextRotationIsFollowingMonday(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		// Wednesday
		{time.Date(2024, 5, 15, 13, 7, 0, 0, loc), time.Date(2024, 5, 20, 0, 0, 0, 0, loc)},
		// Sunday late evening
		{time.Date(2024, 5, 19, 23, 59, 59, 0, loc), time.Date(2024, 5, 20, 0, 0, 0, 0, loc)},
		// Monday exactly at the boundary rolls a full week
		{time.Date(2024, 5, 20, 0, 0, 0, 0, loc), time.Date(2024, 5, 27, 0, 0, 0, 0, loc)},
		// Monday morning
		{time.Date(2024, 5, 20, 8, 0, 0, 0, loc), time.Date(2024, 5, 27, 0, 0, 0, 0, loc)},
	}

	for _, c := range cases {
		assert.True(t, c.want.Equal(nextRotation(c.now)), "now=%s got=%s", c.now, nextRotation(c.now))
	}
}

func TestFileOutputAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	closeLog := Init(Options{File: path})

	Info().Msg("to file")
	require.NoError(t, closeLog())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "to file")

	Init(Options{Out: &bytes.Buffer{}})
}
