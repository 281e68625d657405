// Package logging configures the process-wide slog logger. The terminal
// belongs to the TUI, so diagnostics go to a file or nowhere.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// FileName is the debug log written next to the config file
const FileName = "debug.log"

// Setup installs the default logger. With debug off everything is
// discarded. With debug on, records at debug level and above go to path,
// truncated at start. The returned writer receives the same stream (gin
// uses it) and closing it closes the file.
func Setup(debug bool, path string) (io.WriteCloser, error) {
	if !debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nopCloser{io.Discard}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening debug log: %w", err)
	}

	h := slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})
	slog.SetDefault(slog.New(h))
	slog.Info("debug logging started", "path", path)
	return f, nil
}

// Stderr installs a logger writing to stderr, for headless runs
func Stderr(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})))
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
