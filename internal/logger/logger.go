package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Options controls where the sink writes and how much it keeps in memory
type Options struct {
	Directory string
	File      string
	Level     string
	Buffer    int
}

// Sink is the append-only log destination shared by every surface.
// It is created once in main and handed to whoever needs to log or to
// display the recent log lines.
type Sink struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	lines  []string
	limit  int
	subs   []chan string
	logger *slog.Logger
}

// New opens (or creates) the log file and returns a sink writing to it
func New(opts Options) (*Sink, error) {
	if opts.Directory == "" {
		opts.Directory = "logs"
	}
	if opts.File == "" {
		opts.File = "struxureguard.log"
	}

	if err := os.MkdirAll(opts.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(opts.Directory, opts.File), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	s := newSink(logFile, opts)
	s.closer = logFile
	return s, nil
}

// NewWriter builds a sink on an arbitrary writer, mostly for tests
func NewWriter(w io.Writer, opts Options) *Sink {
	return newSink(w, opts)
}

// Discard returns a sink that keeps nothing on disk
func Discard() *Sink {
	return newSink(io.Discard, Options{Level: "debug"})
}

func newSink(w io.Writer, opts Options) *Sink {
	limit := opts.Buffer
	if limit <= 0 {
		limit = 500
	}
	s := &Sink{out: w, limit: limit}
	s.logger = slog.New(&handler{
		sink:  s,
		level: ParseLevel(opts.Level),
	})
	return s
}

// ParseLevel maps a config string to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the structured logger bound to this sink
func (s *Sink) Logger() *slog.Logger {
	return s.logger
}

// Lines returns a copy of the most recent formatted log lines
func (s *Sink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Subscribe returns a channel receiving every line written after the call.
// Slow readers lose lines rather than block the writer.
func (s *Sink) Subscribe() <-chan string {
	ch := make(chan string, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Close closes the subscriber channels and the underlying file, if any
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *Sink) write(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.out.Write(line); err != nil {
		return err
	}

	text := strings.TrimRight(string(line), "\n")
	s.lines = append(s.lines, text)
	if len(s.lines) > s.limit {
		s.lines = s.lines[len(s.lines)-s.limit:]
	}
	for _, ch := range s.subs {
		select {
		case ch <- text:
		default:
		}
	}
	return nil
}

// handler formats records with slog's text handler and forwards each
// finished line to the sink.
type handler struct {
	sink  *Sink
	level slog.Level
	// ops replays WithAttrs and WithGroup calls in the order they were made
	ops []func(slog.Handler) slog.Handler
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	var buf bytes.Buffer
	var th slog.Handler = slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: h.level})
	for _, op := range h.ops {
		th = op(th)
	}
	if err := th.Handle(ctx, r); err != nil {
		return err
	}
	return h.sink.write(buf.Bytes())
}

func (h *handler) with(op func(slog.Handler) slog.Handler) slog.Handler {
	next := *h
	next.ops = append(append([]func(slog.Handler) slog.Handler{}, h.ops...), op)
	return &next
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(th slog.Handler) slog.Handler { return th.WithAttrs(attrs) })
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(th slog.Handler) slog.Handler { return th.WithGroup(name) })
}
