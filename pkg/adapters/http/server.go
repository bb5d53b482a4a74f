package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/sonicwave/pulse/internal/dto"
	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/session"
)

// maxIntentBody bounds the size of a posted intent.
const maxIntentBody = 4 << 10

// Devices is the registry the server drives. session.Manager implements it.
type Devices interface {
	Open(ctx context.Context, deviceID string) (*session.Orchestrator, error)
	Get(deviceID string) (*session.Orchestrator, error)
	Close(ctx context.Context, deviceID string) error
	List() []string
}

// Server exposes device sessions over HTTP and Server-Sent Events.
type Server struct {
	Devices Devices

	logger  *slog.Logger
	metrics http.Handler
	version string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger. The default writes JSON to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

type openRequest struct {
	DeviceID string `json:"device_id"`
}

type deviceResponse struct {
	DeviceID string         `json:"device_id"`
	State    domain.UiState `json:"state"`
}

type intentResponse struct {
	State  domain.UiState `json:"state"`
	Events []domain.Event `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates the HTTP handler for devices.
func NewHandler(devices Devices, opts ...Option) http.Handler {
	s := &Server{
		Devices: devices,
		logger:  logging.NewJSON(os.Stderr, slog.LevelInfo),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/devices", func(r chi.Router) {
		r.Get("/", s.ListDevices)
		r.Post("/", s.OpenDevice)
		r.Route("/{deviceID}", func(r chi.Router) {
			r.Delete("/", s.CloseDevice)
			r.Get("/state", s.GetState)
			r.Post("/intents", s.PostIntent)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "pulse-http",
		"version": s.version,
	})
}

// ListDevices handles the GET /devices request.
func (s *Server) ListDevices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"devices": s.Devices.List()})
}

// OpenDevice handles the POST /devices request. The body is optional; an
// empty device_id allocates a new one.
func (s *Server) OpenDevice(w http.ResponseWriter, r *http.Request) {
	var body openRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxIntentBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("OpenDevice: Invalid request body", "error", err)
		return
	}

	o, err := s.Devices.Open(r.Context(), body.DeviceID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("open error: %v", err))
		s.logger.Error("OpenDevice failed", "error", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, deviceResponse{DeviceID: o.DeviceID(), State: o.State()})
}

// CloseDevice handles the DELETE /devices/{deviceID} request.
func (s *Server) CloseDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deviceID")
	if err := s.Devices.Close(r.Context(), id); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetState handles the GET /devices/{deviceID}/state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	o, ok := s.device(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, o.State())
}

// PostIntent handles the POST /devices/{deviceID}/intents request.
func (s *Server) PostIntent(w http.ResponseWriter, r *http.Request) {
	o, ok := s.device(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxIntentBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	intent, err := dto.ParseIntent(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		s.logger.Warn("PostIntent: Intent rejected", "error", err, "device_id", o.DeviceID())
		return
	}

	state, events, err := o.Handle(r.Context(), intent)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		s.logger.Error("PostIntent failed", "error", err, "device_id", o.DeviceID())
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	s.writeJSON(w, http.StatusOK, intentResponse{State: state, Events: events})
}

// SubscribeEvents handles the GET /devices/{deviceID}/events request (SSE).
// Every published snapshot is sent as a data frame; the current snapshot is
// sent first.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}
	o, ok := s.device(w, r)
	if !ok {
		return
	}

	updates, cancel := o.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to device updates", "device_id", o.DeviceID())
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	s.writeFrame(w, session.Update{State: o.State()})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "device_id", o.DeviceID())
			return
		case u, ok := <-updates:
			if !ok {
				fmt.Fprintf(w, "event: closed\ndata: %s\n\n", o.DeviceID())
				flusher.Flush()
				return
			}
			s.writeFrame(w, u)
			flusher.Flush()
		}
	}
}

func (s *Server) writeFrame(w io.Writer, u session.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Error("SSE: Update encode failed", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Server) device(w http.ResponseWriter, r *http.Request) (*session.Orchestrator, bool) {
	id := chi.URLParam(r, "deviceID")
	o, err := s.Devices.Get(id)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return nil, false
	}
	return o, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownIntent), errors.Is(err, domain.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
