// cmd/relay/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/tamzrod/modbus-relay/internal/clock"
	"github.com/tamzrod/modbus-relay/internal/config"
	"github.com/tamzrod/modbus-relay/internal/errors"
	"github.com/tamzrod/modbus-relay/internal/logger"
	"github.com/tamzrod/modbus-relay/internal/metrics"
	"github.com/tamzrod/modbus-relay/internal/poller"
	"github.com/tamzrod/modbus-relay/internal/relay"
	"github.com/tamzrod/modbus-relay/internal/sink"
	"github.com/tamzrod/modbus-relay/internal/sink/graphite"
	"github.com/tamzrod/modbus-relay/internal/sink/mqtt"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "mqtt-lto.yaml", "path to the YAML config")
	debug := pflag.BoolP("debug", "d", false, "log every sample and connection event")
	pflag.Parse()

	// Console logging until the config says otherwise.
	logger.Init(logger.Options{Debug: *debug})

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.FatalWithCode(err).Str("path", *cfgPath).Msg("config load failed")
	}

	closeLog := logger.Init(logger.Options{
		Debug: *debug || cfg.Debug,
		File:  cfg.LogFile,
	})
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Metrics
	// --------------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, reg); err != nil {
				logger.ErrorWithCode(errors.Wrap(errors.ErrInitFailed, err)).
					Str("listen", cfg.Metrics.Listen).
					Msg("metrics endpoint stopped")
			}
		}()
	}

	// --------------------
	// Sinks + relays
	// --------------------

	sinks, err := buildSinks(cfg)
	if err != nil {
		logger.FatalWithCode(err).Msg("sink setup failed")
	}
	if len(sinks) == 0 {
		logger.Warn().Msg("no sinks configured; values will only be logged")
	}

	opts := relay.Options{
		Capacity:       cfg.Queue.Capacity,
		EnqueueTimeout: cfg.Queue.EnqueueTimeout(),
		IdleWait:       cfg.Queue.IdleWait(),
		Backoff:        cfg.Queue.Backoff(),
		Clock:          clock.Real(),
		Metrics:        m,
	}

	relays := make([]*relay.Relay, 0, len(sinks))
	for _, s := range sinks {
		r, err := relay.New(s, opts)
		if err != nil {
			logger.FatalWithCode(err).Str("sink", s.Name()).Msg("relay setup failed")
		}
		relays = append(relays, r)
	}

	fan := relay.NewFanout(cfg.MetricPrefix(), clock.Real(), relays...)

	// --------------------
	// Poller
	// --------------------

	p, closePoller, err := poller.Build(cfg, m)
	if err != nil {
		logger.FatalWithCode(err).Msg("poller build failed")
	}
	defer closePoller()

	logger.Info().
		Str("source", cfg.Modbus.Endpoint()).
		Int("sinks", len(relays)).
		Int("registers", len(cfg.Catalog())).
		Msg("relay starting")

	fan.Start(ctx)
	p.Run(ctx, fan)
	fan.Wait()

	logger.Info().Msg("relay stopped")
}

// buildSinks creates a sink for every configured section.
// TLS material is loaded here so a bad path fails at startup.
func buildSinks(cfg *config.Config) ([]sink.Sink, error) {
	var out []sink.Sink

	if g := cfg.Graphite; g != nil {
		c, err := graphite.New(graphite.Config{
			Addr:     g.Addr(),
			Timeout:  g.Timeout(),
			TLS:      g.TLS != nil && *g.TLS,
			CAFile:   g.CAFile,
			CertFile: g.CertFile,
			KeyFile:  g.KeyFile,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	if mq := cfg.MQTT; mq != nil {
		c, err := mqtt.New(mqtt.Config{
			Addr:      mq.Addr(),
			ClientID:  mq.ClientID,
			KeepAlive: mq.KeepAlive(),
			QoS:       byte(mq.QoS),
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrInitFailed, err)
		}
		out = append(out, c)
	}

	return out, nil
}
