// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tamzrod/modbus-relay/internal/errors"
)

var log = zerolog.Nop()

// Options controls logger initialization.
type Options struct {
	Debug bool

	// File enables a rotating log file instead of stdout.
	File string

	// Out overrides the destination (tests).
	Out io.Writer
}

// Init configures the process-wide logger and returns a closer for the
// underlying file, if any.
func Init(opts Options) func() error {
	closer := func() error { return nil }

	var out io.Writer
	switch {
	case opts.Out != nil:
		out = opts.Out
	case opts.File != "":
		// Rotated every Monday at midnight, keeping five backups.
		// MaxSize only caps a runaway week.
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    500,
			MaxBackups: 5,
			LocalTime:  true,
		}
		stop := make(chan struct{})
		go rotateWeekly(lj, stop)

		out = lj
		closer = func() error {
			close(stop)
			return lj.Close()
		}
	default:
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	log = zerolog.New(out).With().Timestamp().Logger()

	if opts.Debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	return closer
}

// With returns a child logger carrying a component field.
func With(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func Debug() *zerolog.Event { return log.Debug() }

func Info() *zerolog.Event { return log.Info() }

func Warn() *zerolog.Event { return log.Warn() }

func Error() *zerolog.Event { return log.Error() }

// Fatal logs and exits with status 1 once the event is sent.
func Fatal() *zerolog.Event { return log.Fatal() }

// ErrorWithCode logs err with its error code attached.
func ErrorWithCode(err error) *zerolog.Event {
	return log.Error().
		Str("error_code", string(errors.CodeOf(err))).
		Err(err)
}

// FatalWithCode logs err with its error code and exits.
func FatalWithCode(err error) *zerolog.Event {
	return log.Fatal().
		Str("error_code", string(errors.CodeOf(err))).
		Err(err)
}

// rotateWeekly rotates lj at each weekly boundary until stop is closed.
func rotateWeekly(lj *lumberjack.Logger, stop <-chan struct{}) {
	for {
		t := time.NewTimer(time.Until(nextRotation(time.Now())))
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
			if err := lj.Rotate(); err != nil {
				log.Warn().Err(err).Msg("log rotation failed")
			}
		}
	}
}

// nextRotation is the first Monday 00:00 strictly after now, in now's zone.
func nextRotation(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return midnight.AddDate(0, 0, days)
}
