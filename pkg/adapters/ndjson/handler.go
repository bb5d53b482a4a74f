package ndjson

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/sonicwave/pulse/internal/dto"
	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/session"
)

// Frame types written to the output stream.
const (
	FrameState  = "state"
	FrameUpdate = "update"
	FrameError  = "error"
)

// Device is the part of a session the handler drives.
// *session.Orchestrator implements it.
type Device interface {
	Handle(ctx context.Context, intent domain.Intent) (domain.UiState, []domain.Event, error)
	State() domain.UiState
}

// Frame is one output line.
type Frame struct {
	Type   string          `json:"type"`
	Line   int             `json:"line,omitempty"`
	State  *domain.UiState `json:"state,omitempty"`
	Events []domain.Event  `json:"events,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Handler reads one JSON intent per line and answers each with a frame.
// Blank lines and lines starting with '#' are skipped.
type Handler struct {
	reader  *bufio.Reader
	mu      sync.Mutex
	encoder *json.Encoder
	maxLine int
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxLineSize overrides the line size limit.
func WithMaxLineSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxLine = n
		}
	}
}

// WithLogger sets the logger used for rejected lines.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a handler for NDJSON IO. Nil streams default to
// stdin and stdout.
func NewHandler(r io.Reader, w io.Writer, opts ...Option) *Handler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &Handler{
		reader:  bufio.NewReader(r),
		encoder: json.NewEncoder(w),
		maxLine: maxLineSizeFromEnv(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve applies every intent read to dev until the input ends or ctx is
// done. Bad lines produce error frames and do not stop the stream; only
// read and write failures are returned.
func (h *Handler) Serve(ctx context.Context, dev Device) error {
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, readErr := h.reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}
		if err := h.line(ctx, dev, n, text); err != nil {
			return err
		}
		if readErr != nil {
			return nil
		}
	}
}

func (h *Handler) line(ctx context.Context, dev Device, n int, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "#") {
		return nil
	}

	clean, err := SanitizeLine(text, h.maxLine)
	if err != nil {
		return h.reject(n, err)
	}
	intent, err := dto.ParseIntent([]byte(clean))
	if err != nil {
		return h.reject(n, err)
	}

	state, events, err := dev.Handle(ctx, intent)
	if err != nil {
		return h.reject(n, err)
	}
	return h.Write(Frame{Type: FrameState, Line: n, State: &state, Events: events})
}

func (h *Handler) reject(n int, err error) error {
	h.logger.Warn("intent line rejected", "line", n, "err", err)
	return h.Write(Frame{Type: FrameError, Line: n, Error: err.Error()})
}

// Follow writes an update frame for every published snapshot until the
// channel closes or ctx is done.
func (h *Handler) Follow(ctx context.Context, updates <-chan session.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			state := u.State
			if err := h.Write(Frame{Type: FrameUpdate, State: &state, Events: u.Events}); err != nil {
				return err
			}
		}
	}
}

// Write emits one frame. It is safe for concurrent use.
func (h *Handler) Write(f Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(f)
}
