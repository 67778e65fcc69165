// internal/relay/relay_test.go
package relay

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-relay/internal/clock"
	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/metrics"
	"github.com/tamzrod/modbus-relay/internal/sink"
)

type fakeSink struct {
	mu sync.Mutex

	connected    bool
	connectFails int
	sendFails    map[string]int

	delivered []sink.Sample
	attempts  map[string]int
	connects  int
	closes    int
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		sendFails: map[string]int{},
		attempts:  map[string]int{},
	}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		return nil
	}
	if f.connectFails > 0 {
		f.connectFails--
		return errors.Wrap(errors.ErrConnectFailed, stderrors.New("refused"))
	}
	f.connects++
	f.connected = true
	return nil
}

func (f *fakeSink) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSink) Transmit(_ context.Context, s sink.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[s.Name]++
	if !f.connected {
		return errors.New(errors.ErrNotConnected)
	}
	if f.sendFails[s.Name] > 0 {
		f.sendFails[s.Name]--
		return errors.Wrap(errors.ErrSendFailed, stderrors.New("broken pipe"))
	}
	f.delivered = append(f.delivered, s)
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		f.closes++
	}
	f.connected = false
	return nil
}

func (f *fakeSink) drop() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeSink) snapshot() ([]sink.Sample, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]sink.Sample(nil), f.delivered...)
	return out, f.connects, f.closes
}

func testOptions() Options {
	return Options{
		Capacity:       16,
		EnqueueTimeout: 10 * time.Millisecond,
		IdleWait:       time.Hour,
		Backoff:        10 * time.Second,
		Clock:          clock.NewFake(time.Unix(1700000000, 0)),
	}
}

func start(t *testing.T, r *Relay) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})
	return cancel
}

func TestEnqueueOverflowDrops(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := testOptions()
	opts.Capacity = 2
	opts.Metrics = metrics.New(reg)

	r, err := New(newFakeSink(), opts)
	require.NoError(t, err)

	require.True(t, r.Enqueue(sink.Sample{Name: "a"}))
	require.True(t, r.Enqueue(sink.Sample{Name: "b"}))

	began := time.Now()
	assert.False(t, r.Enqueue(sink.Sample{Name: "c"}))
	assert.Less(t, time.Since(began), time.Second)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, r.Cap())

	families, err := reg.Gather()
	require.NoError(t, err)
	var dropped float64
	for _, mf := range families {
		if mf.GetName() == "relay_samples_dropped_total" {
			dropped = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, dropped)
}

func TestEnqueueWaitsForSpace(t *testing.T) {
	opts := testOptions()
	opts.Capacity = 1
	opts.EnqueueTimeout = 2 * time.Second

	r, err := New(newFakeSink(), opts)
	require.NoError(t, err)
	require.True(t, r.Enqueue(sink.Sample{Name: "a"}))

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-r.queue
	}()
	assert.True(t, r.Enqueue(sink.Sample{Name: "b"}))
	assert.Equal(t, 1, r.Len())
}

func TestDeliversInOrderAcrossFailures(t *testing.T) {
	fs := newFakeSink()
	fs.sendFails["b"] = 3

	opts := testOptions()
	clk := opts.Clock.(*clock.Fake)
	began := clk.Now()

	r, err := New(fs, opts)
	require.NoError(t, err)

	in := []sink.Sample{
		{Name: "a", Value: 1, Timestamp: 100},
		{Name: "b", Value: 2, Timestamp: 101},
		{Name: "c", Value: 3, Timestamp: 102},
	}
	for _, s := range in {
		require.True(t, r.Enqueue(s))
	}

	start(t, r)

	require.Eventually(t, func() bool {
		got, _, _ := fs.snapshot()
		return len(got) == 3
	}, 2*time.Second, 5*time.Millisecond)

	got, connects, closes := fs.snapshot()
	assert.Equal(t, in, got)
	assert.Equal(t, 4, connects, "one initial connect plus one per failure")
	assert.Equal(t, 3, closes)

	fs.mu.Lock()
	assert.Equal(t, 4, fs.attempts["b"])
	assert.Equal(t, 1, fs.attempts["c"])
	fs.mu.Unlock()

	// one fixed backoff after each failed send, none after a success
	assert.Equal(t, 3*opts.Backoff, clk.Now().Sub(began))
}

func TestRetriesUntilConnectSucceeds(t *testing.T) {
	fs := newFakeSink()
	fs.connectFails = 5

	opts := testOptions()
	clk := opts.Clock.(*clock.Fake)
	began := clk.Now()

	r, err := New(fs, opts)
	require.NoError(t, err)
	require.True(t, r.Enqueue(sink.Sample{Name: "x", Value: 7, Timestamp: 5}))

	start(t, r)

	require.Eventually(t, func() bool {
		got, _, _ := fs.snapshot()
		return len(got) == 1
	}, 2*time.Second, 5*time.Millisecond)

	got, _, _ := fs.snapshot()
	assert.Equal(t, int64(5), got[0].Timestamp)
	assert.Equal(t, Connected, r.State())

	// The startup dial fails without a backoff; the four dials that fail
	// while delivering are each followed by one.
	assert.Equal(t, 4*opts.Backoff, clk.Now().Sub(began))
}

func TestBackoffPerFailedDial(t *testing.T) {
	fs := newFakeSink()
	opts := testOptions()
	clk := opts.Clock.(*clock.Fake)

	r, err := New(fs, opts)
	require.NoError(t, err)

	// Connect at startup, then lose the link before the sample arrives.
	start(t, r)
	require.Eventually(t, func() bool { return r.State() == Connected }, 2*time.Second, 5*time.Millisecond)

	fs.mu.Lock()
	fs.connected = false
	fs.connectFails = 2
	fs.mu.Unlock()

	began := clk.Now()
	require.True(t, r.Enqueue(sink.Sample{Name: "y", Value: 1, Timestamp: 9}))

	require.Eventually(t, func() bool {
		got, _, _ := fs.snapshot()
		return len(got) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 2*opts.Backoff, clk.Now().Sub(began))
}

func TestIdleHealthCheckReconnects(t *testing.T) {
	fs := newFakeSink()
	opts := testOptions()
	opts.IdleWait = 5 * time.Millisecond

	r, err := New(fs, opts)
	require.NoError(t, err)
	start(t, r)

	require.Eventually(t, func() bool {
		_, connects, _ := fs.snapshot()
		return connects == 1
	}, time.Second, time.Millisecond)

	// healthy connection is left alone across idle checks
	time.Sleep(30 * time.Millisecond)
	_, connects, _ := fs.snapshot()
	assert.Equal(t, 1, connects)

	fs.drop()
	require.Eventually(t, func() bool {
		_, connects, _ := fs.snapshot()
		return connects == 2
	}, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return r.State() == Connected }, time.Second, time.Millisecond)
}

func TestShutdownClosesSink(t *testing.T) {
	fs := newFakeSink()
	r, err := New(fs, testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	r.Start(ctx)

	require.Eventually(t, func() bool { return r.State() == Connected }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
	assert.Equal(t, Disconnected, r.State())
	assert.False(t, fs.Connected())
}

func TestNewRequiresSink(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestNewAppliesDefaults(t *testing.T) {
	r, err := New(newFakeSink(), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity, r.Cap())
	assert.Equal(t, 100*time.Millisecond, r.opts.EnqueueTimeout)
	assert.Equal(t, 20*time.Second, r.opts.IdleWait)
	assert.Equal(t, 10*time.Second, r.opts.Backoff)
	assert.Equal(t, Disconnected, r.State())
}
