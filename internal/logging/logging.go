// Package logging builds the slog logger used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const timeFormat = "2006-01-02 15:04:05.000"

// ParseLevel converts a level name (debug, info, warn, error) to a slog level.
// An empty name means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// New returns a tint logger writing to w. Colors are enabled only when w is a
// terminal.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    !isTerminal(w),
		TimeFormat: timeFormat,
	}))
}

// NewStderr returns a logger on stderr at the named level.
func NewStderr(levelName string) (*slog.Logger, *slog.LevelVar, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}
	lvl := &slog.LevelVar{}
	lvl.Set(level)
	return New(os.Stderr, lvl), lvl, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
