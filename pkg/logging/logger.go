// Package logging sets up the server and request loggers.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"hkexplorer/pkg/config"
)

// RequestLogger receives one line per HTTP request. It discards until Init runs.
var RequestLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Init rotates the previous run's logs to .old, installs the server logger as
// the slog default and opens the request log. The server logger writes to its
// file, to stdout from INFO up, and to Recent. The returned func closes both files.
//
// The LLM history file is only rotated here; the failover provider appends to it.
func Init(cfg *config.LogConfig) (func(), error) {
	for _, p := range []string{cfg.Server.Path, cfg.Requests.Path, cfg.LLM.Path} {
		if err := rotate(p); err != nil {
			return nil, fmt.Errorf("failed to rotate %s: %w", p, err)
		}
	}

	serverFile, err := openAppend(cfg.Server.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server log: %w", err)
	}
	requestFile, err := openAppend(cfg.Requests.Path)
	if err != nil {
		serverFile.Close()
		return nil, fmt.Errorf("failed to open request log: %w", err)
	}

	level := parseLevel(cfg.Server.Level)
	slog.SetDefault(slog.New(fanout{
		slog.NewTextHandler(serverFile, fileOptions(level)),
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: max(level, slog.LevelInfo)}),
		Recent,
	}))
	RequestLogger = slog.New(slog.NewTextHandler(requestFile, fileOptions(parseLevel(cfg.Requests.Level))))
	EnableTrace = strings.EqualFold(cfg.Server.Level, "TRACE")

	return func() {
		requestFile.Close()
		serverFile.Close()
	}, nil
}

// parseLevel maps a config level name to a slog level. TRACE logs as DEBUG;
// anything unrecognised is INFO.
func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "TRACE") {
		return slog.LevelDebug
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func fileOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// rotate moves path to path.old, replacing an older copy, and makes sure the
// directory exists. An empty path is ignored.
func rotate(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	_ = os.Remove(path + ".old")
	return os.Rename(path, path+".old")
}

// fanout sends each record to every handler enabled for its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(f, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

// nolint:gocritic // slog.Handler takes the record by value
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
