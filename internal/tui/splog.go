package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures a Splog
type LogOptions struct {
	// File is the rotating log file; empty or os.DevNull disables file logging
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Debug shows debug messages and engine records on the console
	Debug bool
}

// Splog writes user-facing output and mirrors it, with engine diagnostics, into the log file
type Splog struct {
	console *slog.Logger
	engine  *slog.Logger
	writer  io.Writer
	file    io.Closer
	quiet   bool
}

// NewSplog creates a splog that writes messages to w and, when opts.File is set, to a rotating log file
func NewSplog(w io.Writer, opts LogOptions) (*Splog, error) {
	s := &Splog{writer: w}
	console := &messageHandler{splog: s, debug: opts.Debug}

	var file slog.Handler
	if opts.File != "" && opts.File != os.DevNull {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		s.file = rotating
		file = slog.NewTextHandler(rotating, &slog.HandlerOptions{Level: slog.LevelDebug, ReplaceAttr: shortTime})
	}

	s.console = slog.New(fanout{console, file})
	if opts.Debug {
		s.engine = slog.New(fanout{console, file})
	} else {
		s.engine = slog.New(fanout{file})
	}
	return s, nil
}

func shortTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.String(a.Key, a.Value.Time().Format("2006-01-02 15:04:05.000"))
	}
	return a
}

// messageHandler prints the bare message of each record
type messageHandler struct {
	splog *Splog
	debug bool
}

func (h *messageHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level > slog.LevelDebug || h.debug
}

func (h *messageHandler) Handle(_ context.Context, record slog.Record) error {
	if h.splog.quiet {
		return nil
	}
	_, err := fmt.Fprintln(h.splog.writer, record.Message)
	return err
}

func (h *messageHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *messageHandler) WithGroup(string) slog.Handler      { return h }

// fanout hands each record to every non-nil handler that accepts its level
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h != nil && h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range f {
		if h == nil || !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(wrap func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		if h != nil {
			out[i] = wrap(h)
		}
	}
	return out
}

// Logger returns the structured logger for engine diagnostics.
// Records go to the log file, and to the console only in debug mode.
func (s *Splog) Logger() *slog.Logger {
	return s.engine
}

// SetQuiet suppresses console output while a full screen UI runs
func (s *Splog) SetQuiet(quiet bool) {
	s.quiet = quiet
}

func (s *Splog) printf(level slog.Level, prefix, format string, args []any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.console.Log(context.Background(), level, prefix+msg)
}

// Info writes an info message
func (s *Splog) Info(format string, args ...any) {
	s.printf(slog.LevelInfo, "", format, args)
}

// Warn writes a warning message
func (s *Splog) Warn(format string, args ...any) {
	s.printf(slog.LevelWarn, "⚠️  ", format, args)
}

// Error writes an error message
func (s *Splog) Error(format string, args ...any) {
	s.printf(slog.LevelError, "❌ ", format, args)
}

func (s *Splog) Debug(format string, args ...any) {
	s.printf(slog.LevelDebug, "", format, args)
}

func (s *Splog) Tip(format string, args ...any) {
	s.printf(slog.LevelInfo, "💡 ", format, args)
}

// Page writes raw output such as diffs, bypassing the log file
func (s *Splog) Page(content string) {
	_, _ = io.WriteString(s.writer, content)
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
