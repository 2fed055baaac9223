// Package pocketmcp embeds the mcp-pocket MCP server: it wires the
// configuration, the Pocket client and the tool registry together.
package pocketmcp

import (
	"context"
	"log/slog"
	"net/http"

	gomcpserver "github.com/localrivet/gomcp/server"

	"github.com/kazuph/mcp-pocket/internal/config"
	"github.com/kazuph/mcp-pocket/internal/credentials"
	"github.com/kazuph/mcp-pocket/internal/errortypes"
	"github.com/kazuph/mcp-pocket/internal/logger"
	"github.com/kazuph/mcp-pocket/internal/pocket"
	"github.com/kazuph/mcp-pocket/internal/server"
	"github.com/kazuph/mcp-pocket/internal/telemetry"
	"github.com/kazuph/mcp-pocket/internal/tools"
)

// Config represents the configuration for the mcp-pocket service.
type Config = config.Config

// Article is a normalized Pocket article.
type Article = pocket.Article

// Server represents the mcp-pocket service.
type Server struct {
	config     *Config
	client     *pocket.Client
	registry   *tools.Registry
	metrics    *telemetry.MetricsCollector
	toolServer server.ToolServer
	logger     *slog.Logger
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // If nil, slog.Default() is used.

	// SkipKeyring disables the OS keyring credential fallback.
	SkipKeyring bool
}

// NewServer creates and initializes a Server. Missing credentials are not
// an error: the tools stay listed and report the missing configuration
// when called.
func NewServer(opts ServerOptions) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
		log.Debug("Using provided Config object for server initialization")
	} else if opts.ConfigPath != "" {
		log.Info("Loading configuration for server initialization", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	} else {
		log.Warn("No Config object or ConfigPath provided, using default configuration")
		cfg = DefaultConfig()
	}

	if !opts.SkipKeyring {
		FillFromKeyring(cfg, log)
	}

	client, registry, metrics, err := CreateComponents(cfg, log)
	if err != nil {
		return nil, err
	}

	toolServer := server.NewArticleToolServer(registry, metrics, log)
	if err := toolServer.Initialize(); err != nil {
		return nil, errortypes.ConfigError(err, "Failed to initialize MCP article tool server")
	}

	log.Info("mcp-pocket server successfully initialized", "mode", string(registry.Mode()))
	return &Server{
		config:     cfg,
		client:     client,
		registry:   registry,
		metrics:    metrics,
		toolServer: toolServer,
		logger:     log,
	}, nil
}

// DefaultConfig returns the default configuration for the mcp-pocket service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// FillFromKeyring completes missing credential halves in cfg from the OS
// keyring. Keyring failures are logged and otherwise ignored.
func FillFromKeyring(cfg *Config, log *slog.Logger) {
	if _, ok := cfg.Credentials(); ok {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	stored, err := credentials.Load()
	if err != nil {
		log.Warn("Could not read credentials from keyring", "error", err)
		return
	}
	cfg.FillCredentials(stored)
}

// CreateComponents builds the Pocket client and the tool registry from cfg
// without creating a server. The client is nil when cfg lacks credentials.
func CreateComponents(cfg *Config, log *slog.Logger) (*pocket.Client, *tools.Registry, *telemetry.MetricsCollector, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg == nil {
		return nil, nil, nil, errortypes.ConfigError(nil, "missing configuration")
	}

	mode, err := pocket.ParseMode(cfg.Pocket.Mode)
	if err != nil {
		return nil, nil, nil, errortypes.ConfigError(err, "invalid pocket.mode")
	}

	metrics := telemetry.NewMetricsCollector()
	registryOpts := []tools.Option{
		tools.WithMetrics(metrics),
		tools.WithLogger(logger.WithComponent(log, "tools")),
	}

	creds, ok := cfg.Credentials()
	if !ok {
		log.Warn("Pocket credentials are not configured")
		return nil, tools.NewRegistry(nil, mode, registryOpts...), metrics, nil
	}

	client := pocket.NewClient(creds,
		pocket.WithBaseURL(cfg.Pocket.BaseURL),
		pocket.WithMode(mode),
		pocket.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		pocket.WithMetrics(metrics),
		pocket.WithLogger(logger.WithComponent(log, "pocket")),
	)

	log.Info("Pocket client initialized", "base_url", cfg.Pocket.BaseURL, "mode", string(mode))
	return client, tools.NewRegistry(client, mode, registryOpts...), metrics, nil
}

// Start serves MCP over stdio until the client disconnects.
func (s *Server) Start() error {
	s.logger.Info("Starting mcp-pocket service")
	return s.toolServer.Start()
}

// Stop stops the mcp-pocket service.
func (s *Server) Stop() error {
	s.logger.Info("Stopping mcp-pocket service")
	if err := s.toolServer.Stop(); err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		return err
	}
	return nil
}

// Tools returns the tool descriptors the server lists.
func (s *Server) Tools() []tools.Descriptor {
	return s.registry.ListTools()
}

// RegisterTools adds the Pocket tools to a host's own gomcp server.
func (s *Server) RegisterTools(ctx context.Context, srv gomcpserver.Server) gomcpserver.Server {
	return server.RegisterTools(ctx, srv, s.registry)
}

// CallTool runs one tool call exactly as an MCP client would.
func (s *Server) CallTool(ctx context.Context, name string, arguments map[string]interface{}) tools.Result {
	return s.registry.CallTool(ctx, tools.Invocation{Name: name, Arguments: arguments})
}

// FetchArticles fetches up to count articles, clamped to [1, 20].
func (s *Server) FetchArticles(ctx context.Context, count int) ([]Article, error) {
	if s.client == nil {
		return nil, errortypes.ConfigError(tools.ErrConfigurationMissing, "")
	}
	return s.client.FetchArticles(ctx, count)
}

// MarkAsRead archives the article with itemID.
func (s *Server) MarkAsRead(ctx context.Context, itemID string) error {
	if s.client == nil {
		return errortypes.ConfigError(tools.ErrConfigurationMissing, "")
	}
	return s.client.MarkAsRead(ctx, itemID)
}

// GetConfig returns the configuration the server was built from.
func (s *Server) GetConfig() *Config {
	return s.config
}

// GetRegistry returns the tool registry used by the server.
func (s *Server) GetRegistry() *tools.Registry {
	return s.registry
}

// GetMetrics returns the metrics collector used by the server.
func (s *Server) GetMetrics() *telemetry.MetricsCollector {
	return s.metrics
}
