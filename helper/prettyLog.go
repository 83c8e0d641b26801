package helper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler prints one colorized line per record:
// [15:04:05.000] LEVEL: message {"attr":"value"}
type PrettyHandler struct {
	slog.Handler
	l   io.Writer
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func NewPrettyHandler(out io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	buf := &bytes.Buffer{}
	return &PrettyHandler{
		Handler: slog.NewJSONHandler(buf, &slog.HandlerOptions{
			Level:       opts.SlogOpts.Level,
			AddSource:   opts.SlogOpts.AddSource,
			ReplaceAttr: suppressDefaults(opts.SlogOpts.ReplaceAttr),
		}),
		l:   out,
		mu:  &sync.Mutex{},
		buf: buf,
	}
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{Handler: h.Handler.WithAttrs(attrs), l: h.l, mu: h.mu, buf: h.buf}
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{Handler: h.Handler.WithGroup(name), l: h.l, mu: h.mu, buf: h.buf}
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.Handler.Handle(ctx, r); err != nil {
		return NewError("handle record", err)
	}

	attrs := bytes.TrimSpace(h.buf.Bytes())
	if len(attrs) == 0 {
		attrs = []byte("{}")
	}

	timeStr := r.Time.Format("[15:04:05.000]")
	msg := color.CyanString(r.Message)

	_, err := fmt.Fprintln(h.l, timeStr, level, msg, color.WhiteString(string(attrs)))
	return err
}

// suppressDefaults removes time, level and message from the JSON output,
// they are printed in front of the attributes instead.
func suppressDefaults(next func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey) {
			return slog.Attr{}
		}
		if next == nil {
			return a
		}
		return next(groups, a)
	}
}

// NewLogger returns a slog logger writing through the pretty handler at the given level.
func NewLogger(out io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewPrettyHandler(out, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
	}))
}

// ParseLevel maps a level name to a slog level, unknown names map to info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
