// Package logging provides the slog handlers used by the filing pipeline.
//
// TraceHandler renders records in the line format the trace builder parses:
//
//	2023-05-01 14:03:22,123 - INFO - Fetching SEC filings ticker=AAPL
package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimeFormat is the timestamp layout of a trace log line.
const TimeFormat = "2006-01-02 15:04:05,000"

// LevelName returns the level label written to trace log lines.
func LevelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARNING"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// TraceHandler writes "TIMESTAMP - LEVEL - message k=v ..." lines. Attributes
// are rendered by an inner slog.TextHandler.
type TraceHandler struct {
	out  io.Writer
	mu   *sync.Mutex
	buf  *bytes.Buffer
	text slog.Handler
}

// NewTraceHandler creates a TraceHandler writing to w.
func NewTraceHandler(w io.Writer, opts *slog.HandlerOptions) *TraceHandler {
	var o slog.HandlerOptions
	if opts != nil {
		o = *opts
	}
	replace := o.ReplaceAttr
	o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 {
			switch a.Key {
			case slog.TimeKey, slog.LevelKey, slog.MessageKey:
				return slog.Attr{}
			}
		}
		if replace != nil {
			return replace(groups, a)
		}
		return a
	}

	buf := new(bytes.Buffer)
	return &TraceHandler{
		out:  w,
		mu:   &sync.Mutex{},
		buf:  buf,
		text: slog.NewTextHandler(buf, &o),
	}
}

func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.text.Enabled(ctx, level)
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.text.Handle(ctx, r); err != nil {
		return err
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var line strings.Builder
	line.WriteString(ts.Format(TimeFormat))
	line.WriteString(" - ")
	line.WriteString(LevelName(r.Level))
	line.WriteString(" - ")
	line.WriteString(strings.ReplaceAll(r.Message, "\n", " "))
	if attrs := bytes.TrimSpace(h.buf.Bytes()); len(attrs) > 0 {
		line.WriteByte(' ')
		line.Write(attrs)
	}
	line.WriteByte('\n')

	_, err := io.WriteString(h.out, line.String())
	return err
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{out: h.out, mu: h.mu, buf: h.buf, text: h.text.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{out: h.out, mu: h.mu, buf: h.buf, text: h.text.WithGroup(name)}
}

// Fanout dispatches each record to every handler that accepts its level.
type Fanout []slog.Handler

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f Fanout) WithGroup(name string) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// Options configures Open.
type Options struct {
	// File receives trace-format lines at Debug level and above. Empty
	// disables the file sink.
	File string
	// Console receives human-readable output at ConsoleLevel.
	Console      io.Writer
	ConsoleLevel slog.Level
}

// Open builds the process logger. The returned closer releases the log file
// and is safe to call when no file was opened.
func Open(opts Options) (*slog.Logger, io.Closer, error) {
	var handlers Fanout
	var closer io.Closer = nopCloser{}

	if opts.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Console, &slog.HandlerOptions{Level: opts.ConsoleLevel}))
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, NewTraceHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closer, nil
	}
	return slog.New(handlers), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
