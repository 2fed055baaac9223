package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/localrivet/gomcp/server"
	"github.com/localrivet/gomcp/transport/stdio"

	"github.com/kazuph/mcp-pocket/internal/errortypes"
	"github.com/kazuph/mcp-pocket/internal/telemetry"
	"github.com/kazuph/mcp-pocket/internal/tools"
)

// ServerName is the MCP server name announced to clients.
const ServerName = "mcp-pocket"

// MCPArticleToolServer implements ToolServer on top of gomcp, answering
// tool calls through a tools.Registry.
type MCPArticleToolServer struct {
	registry  *tools.Registry
	metrics   *telemetry.MetricsCollector
	mcpServer server.Server
	logger    *slog.Logger

	in  io.Reader
	out io.Writer

	// ctx bounds every upstream request; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewArticleToolServer creates a new MCPArticleToolServer instance serving
// on stdin and stdout. metrics may be nil.
func NewArticleToolServer(registry *tools.Registry, metrics *telemetry.MetricsCollector, logger *slog.Logger) *MCPArticleToolServer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MCPArticleToolServer{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		in:       os.Stdin,
		out:      os.Stdout,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetIO replaces the streams Start serves on.
func (s *MCPArticleToolServer) SetIO(in io.Reader, out io.Writer) {
	s.in = in
	s.out = out
}

// Initialize creates the gomcp server and registers the tools.
func (s *MCPArticleToolServer) Initialize() error {
	s.logger.Info("Initializing MCP article tool server")

	if s.registry == nil {
		return errortypes.ConfigError(errors.New("missing tool registry"), "server initialization failed")
	}
	if !s.registry.Configured() {
		s.logger.Warn("Pocket credentials are not configured; article tools will report an error")
	}

	srv := server.NewServer(ServerName, server.WithLogger(s.logger.With("component", "gomcp")))
	s.mcpServer = RegisterTools(s.ctx, srv, s.registry)

	s.logger.Info("MCP article tool server initialized",
		"tool_count", len(s.registry.ListTools()),
		"mode", string(s.registry.Mode()))
	return nil
}

// Start serves MCP over the configured streams and blocks until the input
// is exhausted or Stop is called.
func (s *MCPArticleToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(errors.New("server not initialized"), "cannot start server")
	}

	in := &eofReader{r: s.in, eof: make(chan struct{})}
	transport := stdio.NewTransportWithIO(in, s.out)
	transport.SetMessageHandler(s.HandleMessage)
	if err := transport.Initialize(); err != nil {
		return errortypes.InternalError(err, "failed to initialize stdio transport")
	}

	s.logger.Info("Starting MCP article tool server on stdio")
	if err := transport.Start(); err != nil {
		return errortypes.InternalError(err, "failed to start stdio transport")
	}

	select {
	case <-in.eof:
		s.logger.Info("Client closed the connection")
	case <-s.ctx.Done():
	}
	return transport.Stop()
}

// Stop cancels in-flight upstream requests and ends Start.
func (s *MCPArticleToolServer) Stop() error {
	s.logger.Info("Stopping MCP article tool server")
	s.cancel()
	if s.metrics != nil {
		s.logger.Debug("Final metrics\n" + s.metrics.GetReport())
	}
	return nil
}

// rpcRequest is the part of a JSON-RPC message needed for routing.
type rpcRequest struct {
	ID     interface{}     `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result"`
}

// HandleMessage answers one JSON-RPC message. Calls to tools the registry
// does not list are answered by the registry, so unknown names come back
// as tool errors instead of protocol errors. Everything else is routed by
// gomcp.
func (s *MCPArticleToolServer) HandleMessage(message []byte) ([]byte, error) {
	var req rpcRequest
	if err := json.Unmarshal(message, &req); err == nil {
		if req.Method == "" && req.ID != nil {
			// A client response to a server request; nothing to answer.
			return nil, nil
		}
		if req.Method == "tools/call" {
			var params struct {
				Name      string                 `json:"name"`
				Arguments map[string]interface{} `json:"arguments"`
			}
			if json.Unmarshal(req.Params, &params) == nil && params.Name != "" && !s.lists(params.Name) {
				result := s.registry.CallTool(s.ctx, tools.Invocation{Name: params.Name, Arguments: params.Arguments})
				return json.Marshal(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result.Map()})
			}
		}
	}
	return server.HandleMessage(s.mcpServer.GetServer(), message)
}

func (s *MCPArticleToolServer) lists(name string) bool {
	for _, d := range s.registry.ListTools() {
		if d.Name == name {
			return true
		}
	}
	return false
}

// eofReader closes eof once the wrapped reader is exhausted.
type eofReader struct {
	r    io.Reader
	eof  chan struct{}
	once sync.Once
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil {
		e.once.Do(func() { close(e.eof) })
	}
	return n, err
}

// RegisterTools adds the registry's tools to srv and returns the resulting
// server. Arguments reach the registry undecoded and each tool advertises
// the registry's input schema. Calls run under ctx.
func RegisterTools(ctx context.Context, srv server.Server, registry *tools.Registry) server.Server {
	for _, d := range registry.ListTools() {
		h := &toolHandler{ctx: ctx, name: d.Name, registry: registry}
		srv = srv.Tool(d.Name, d.Description, h.handle)
		if tool, ok := srv.GetServer().GetTools()[d.Name]; ok {
			tool.Schema = d.InputSchema
		}
	}
	return srv
}

// toolHandler adapts gomcp's handler signature to the registry. Tool
// failures are returned inside the result map, never as an error.
type toolHandler struct {
	ctx      context.Context
	name     string
	registry *tools.Registry
}

func (h *toolHandler) handle(_ *server.Context, args map[string]interface{}) (map[string]interface{}, error) {
	return h.registry.CallTool(h.ctx, tools.Invocation{Name: h.name, Arguments: args}).Map(), nil
}
