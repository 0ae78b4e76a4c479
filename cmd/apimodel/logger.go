package main

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the CLI logger. Logs go to stderr, or to a rotating file
// when LogOutput is set; stdout stays reserved for documents and reports.
// The returned closer releases the log file, if any.
func newLogger(stderr io.Writer, cfg *config) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.WarnLevel
	}

	var (
		writer io.Writer = stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.LogOutput != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogOutput,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
		}
		writer, closer = file, file
	}

	if strings.EqualFold(cfg.LogFormat, "text") {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		}
	}

	// parallel parsing logs from several goroutines
	logger := zerolog.New(zerolog.SyncWriter(writer)).Level(level).With().
		Timestamp().
		Str("component", "apimodel").
		Logger()
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
