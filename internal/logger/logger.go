package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the process logger
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	File   string // optional append-only copy of every line
}

// New builds the process logger. The returned closer releases the log file
// when one was configured.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var stdout io.Writer = os.Stdout
	if strings.EqualFold(cfg.Format, "console") {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}

	closer := io.Closer(nopCloser{})
	out := stdout
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(stdout, f)
		closer = f
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(lvl), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
