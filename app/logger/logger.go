package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Debug  bool
	Format string // text or json
	File   string // optional, rotated by size
}

// New builds a logger writing to stderr and, when cfg.File is set, to a
// rotated log file. The returned closer releases the file.
func New(cfg Config, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	var output io.Writer = stderr
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    64, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		}
		output = io.MultiWriter(stderr, fileWriter)
		closer = fileWriter
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "", "text":
		handler = slog.NewTextHandler(output, opts)
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		return nil, nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	return slog.New(handler), closer, nil
}

// Setup installs the logger as the slog default.
func Setup(cfg Config) (io.Closer, error) {
	l, closer, err := New(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(l)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
