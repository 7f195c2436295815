package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return 0, fmt.Errorf("unknown log.level %q", s)
}

// NewLogger builds the root logger: terminal output by default, JSON lines
// when c.JSON is set. useColor only affects terminal output.
func NewLogger(c LogConfig, w io.Writer, useColor bool) (log.Logger, error) {
	lvl, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	var h slog.Handler
	if c.JSON {
		h = log.JSONHandlerWithLevel(w, lvl)
	} else {
		h = log.NewTerminalHandlerWithLevel(w, lvl, useColor)
	}
	return log.NewLogger(h), nil
}
