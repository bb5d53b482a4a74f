package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sonicwave/pulse/internal/dto"
	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/internal/presentation/graph"
	"github.com/sonicwave/pulse/internal/runtime"
	"github.com/sonicwave/pulse/pkg/adapters/ndjson"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/sonicwave/pulse/pkg/session"
)

const graphURI = "pulse://state-machine"

// StateResponse is the structured result of the device tools.
type StateResponse struct {
	DeviceID string         `json:"device_id" jsonschema_description:"The device the state belongs to"`
	State    domain.UiState `json:"state" jsonschema_description:"The latest published snapshot"`
	Events   []domain.Event `json:"events,omitempty" jsonschema_description:"One-shot toasts and errors produced by the intent"`
}

// OperationsResponse is the result of list_operations.
type OperationsResponse struct {
	Operations []domain.Operation `json:"operations" jsonschema_description:"Recorded sessions, newest first"`
}

// Devices is the registry the server drives. session.Manager implements it.
type Devices interface {
	Open(ctx context.Context, deviceID string) (*session.Orchestrator, error)
	Get(deviceID string) (*session.Orchestrator, error)
	List() []string
}

// Server exposes device sessions as MCP tools.
type Server struct {
	devices   Devices
	ledger    ports.LedgerReader
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLedger enables the list_operations tool.
func WithLedger(l ports.LedgerReader) Option {
	return func(s *Server) {
		s.ledger = l
	}
}

// WithLogger sets the logger. Logs must never go to stdout under stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(devices Devices, version string, opts ...Option) *Server {
	s := &Server{
		devices:   devices,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("pulse-mcp", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_devices",
		mcp.WithDescription("List the IDs of open devices."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, _ := json.Marshal(map[string][]string{"devices": s.devices.List()})
		return mcp.NewToolResultText(string(data)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("open_device",
		mcp.WithDescription("Open a device session, or return the existing one. An empty device_id allocates a new device."),
		mcp.WithString("device_id", mcp.Description("The device to open (optional)")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleOpen))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Read the latest snapshot of an open device."),
		mcp.WithString("device_id", mcp.Required(), mcp.Description("The device to read")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("send_intent",
		mcp.WithDescription(`Apply one user intent to a device, e.g. {"type":"append_digit","digit":"4"} or {"type":"toggle_start_stop"}.`),
		mcp.WithString("device_id", mcp.Required(), mcp.Description("The device to drive")),
		mcp.WithString("intent", mcp.Required(), mcp.Description("The intent as a JSON object")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendIntent))

	if s.ledger != nil {
		s.mcpServer.AddTool(mcp.NewTool("list_operations",
			mcp.WithDescription("List recorded sessions, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of operations (default 20)")),
			mcp.WithOutputSchema[OperationsResponse](),
		), mcp.NewStructuredToolHandler(s.handleListOperations))
	}
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	id, _ := args["device_id"].(string)
	o, err := s.devices.Open(ctx, id)
	if err != nil {
		return StateResponse{}, fmt.Errorf("open failed: %w", err)
	}
	return StateResponse{DeviceID: o.DeviceID(), State: o.State()}, nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	id, _ := args["device_id"].(string)
	o, err := s.devices.Get(id)
	if err != nil {
		return StateResponse{}, err
	}
	return StateResponse{DeviceID: id, State: o.State()}, nil
}

func (s *Server) handleSendIntent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	id, _ := args["device_id"].(string)
	raw, _ := args["intent"].(string)

	o, err := s.devices.Get(id)
	if err != nil {
		return StateResponse{}, err
	}

	clean, err := ndjson.SanitizeLine(raw, ndjson.DefaultMaxLineSize)
	if err != nil {
		s.logger.Warn("MCP send_intent: input rejected", "error", err, "size", len(raw))
		return StateResponse{}, fmt.Errorf("intent rejected: %w", err)
	}
	intent, err := dto.ParseIntent([]byte(clean))
	if err != nil {
		return StateResponse{}, fmt.Errorf("intent rejected: %w", err)
	}

	state, events, err := o.Handle(ctx, intent)
	if err != nil {
		return StateResponse{}, fmt.Errorf("intent failed: %w", err)
	}
	return StateResponse{DeviceID: id, State: state, Events: events}, nil
}

func (s *Server) handleListOperations(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (OperationsResponse, error) {
	limit := 20
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	ops, err := s.ledger.Operations(ctx, limit)
	if err != nil {
		return OperationsResponse{}, fmt.Errorf("ledger read failed: %w", err)
	}
	if ops == nil {
		ops = []domain.Operation{}
	}
	return OperationsResponse{Operations: ops}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Run State Machine",
		mcp.WithResourceDescription("Mermaid diagram of session run states and transitions"),
		mcp.WithMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "text/vnd.mermaid",
				Text:     graph.GenerateMermaid(runtime.Edges(), nil),
			},
		}, nil
	})
}
