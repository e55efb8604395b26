package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/soltixdb/soltix-transform/internal/config"
)

// rfc3339Millis keeps millisecond precision, matching series timestamps.
const rfc3339Millis = "2006-01-02T15:04:05.000Z07:00"

var timeFormats = map[string]string{
	"rfc3339": time.RFC3339,
	"unixms":  rfc3339Millis,
	"unix":    time.UnixDate,
	"kitchen": time.Kitchen,
}

// NewFromConfig creates a logger from configuration. An unknown level falls
// back to info.
func NewFromConfig(cfg config.LoggingConfig) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output, err := openOutput(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: timeFormat(cfg.TimeFormat),
		}
	}

	return NewWithWriter(output, level), nil
}

// openOutput resolves stdout, stderr, discard or a file path (created with
// its directory, appended to).
func openOutput(path string) (io.Writer, error) {
	switch path {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

func timeFormat(name string) string {
	if f, ok := timeFormats[strings.ToLower(name)]; ok {
		return f
	}
	return time.RFC3339
}
