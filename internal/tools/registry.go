package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kazuph/mcp-pocket/internal/errortypes"
	"github.com/kazuph/mcp-pocket/internal/pocket"
	"github.com/kazuph/mcp-pocket/internal/telemetry"
)

// Result text prefixes. Client failures are reported as upstream API
// errors; everything else raised during dispatch is reported as a generic
// error.
const (
	apiErrorPrefix     = "Pocket API Error: "
	genericErrorPrefix = "Error: "
)

// ErrConfigurationMissing is reported when the Pocket credentials are not set.
var ErrConfigurationMissing = errors.New("Pocket API configuration is not available")

// UnknownToolError is reported for a tool name outside the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "Unknown tool: " + e.Name
}

// ArticleService is the part of the Pocket client the registry calls.
type ArticleService interface {
	FetchArticles(ctx context.Context, count int) ([]pocket.Article, error)
	MarkAsRead(ctx context.Context, itemID string) error
}

// Registry exposes the tool catalog and routes invocations to the
// article service.
type Registry struct {
	service ArticleService
	mode    pocket.Mode
	metrics *telemetry.MetricsCollector
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics counts tool calls and failed results into m.
func WithMetrics(m *telemetry.MetricsCollector) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger sets the registry logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates a Registry. A nil service means the credentials are
// not configured: the tools stay listed but every call fails with
// ErrConfigurationMissing.
func NewRegistry(service ArticleService, mode pocket.Mode, opts ...Option) *Registry {
	if mode == "" {
		mode = pocket.ModeUnread
	}
	r := &Registry{
		service: service,
		mode:    mode,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Mode returns the catalog variant the registry serves.
func (r *Registry) Mode() pocket.Mode {
	return r.mode
}

// Configured reports whether calls can reach the article service.
func (r *Registry) Configured() bool {
	return r.service != nil
}

// ListTools returns the tool descriptors in listing order.
func (r *Registry) ListTools() []Descriptor {
	return Catalog(r.mode)
}

// CallTool runs inv and returns its result. It never fails: every error is
// reported as a Result with IsError set.
func (r *Registry) CallTool(ctx context.Context, inv Invocation) (result Result) {
	r.metrics.IncrementCounter(telemetry.MetricToolCallsPrefix+inv.Name, 1)
	r.logger.Info("Processing tool call", "tool", inv.Name)

	defer func() {
		if p := recover(); p != nil {
			err := errortypes.InternalError(fmt.Errorf("%v", p), "panic during tool call").
				WithField("tool", inv.Name)
			errortypes.LogError(r.logger, err)
			result = errorResult(genericErrorPrefix + fmt.Sprint(p))
		}
		if result.IsError {
			r.metrics.IncrementCounter(telemetry.MetricToolErrors, 1)
		}
	}()

	result, err := r.dispatch(ctx, inv)
	if err != nil {
		errortypes.LogError(r.logger, err)
		return errorResult(genericErrorPrefix + err.Error())
	}
	return result
}

// dispatch returns an error for failures that belong to the registry
// itself. Service failures come back as an error Result.
func (r *Registry) dispatch(ctx context.Context, inv Invocation) (Result, error) {
	switch {
	case inv.Name == ToolFetchArticles:
		return r.fetchArticles(ctx, inv.Arguments)
	case inv.Name == ToolMarkAsRead && r.mode.TracksItems():
		return r.markAsRead(ctx, inv.Arguments)
	}
	return Result{}, errortypes.NotFoundError(&UnknownToolError{Name: inv.Name}, "")
}

func (r *Registry) fetchArticles(ctx context.Context, arguments map[string]interface{}) (Result, error) {
	if r.service == nil {
		return Result{}, errortypes.ConfigError(ErrConfigurationMissing, "")
	}

	var args FetchArticlesArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return Result{}, errortypes.ValidationError(err, "Invalid arguments for "+ToolFetchArticles)
	}
	count := pocket.DefaultCount
	if args.Count != nil {
		count = *args.Count
	}

	articles, err := r.service.FetchArticles(ctx, count)
	if err != nil {
		errortypes.LogError(r.logger, err)
		return errorResult(apiErrorPrefix + err.Error()), nil
	}

	r.logger.Info("Fetched articles", "count", len(articles))
	return textResult(FormatArticles(articles, r.mode.TracksItems())), nil
}

func (r *Registry) markAsRead(ctx context.Context, arguments map[string]interface{}) (Result, error) {
	if r.service == nil {
		return Result{}, errortypes.ConfigError(ErrConfigurationMissing, "")
	}

	var args MarkAsReadArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return Result{}, errortypes.ValidationError(err, "Invalid arguments for "+ToolMarkAsRead)
	}
	if _, ok := arguments["itemId"]; !ok || args.ItemID == "" {
		return Result{}, errortypes.ValidationError(errors.New("itemId is required"), "Invalid arguments for "+ToolMarkAsRead)
	}

	if err := r.service.MarkAsRead(ctx, args.ItemID); err != nil {
		errortypes.LogError(r.logger, err)
		return errorResult(apiErrorPrefix + err.Error()), nil
	}

	r.logger.Info("Marked article as read", "item_id", args.ItemID)
	return textResult(fmt.Sprintf("Successfully marked article %s as read", args.ItemID)), nil
}

// FormatArticles renders one block per article, separated by "---" lines.
func FormatArticles(articles []pocket.Article, withID bool) string {
	blocks := make([]string, 0, len(articles))
	for _, a := range articles {
		var b strings.Builder
		if withID {
			fmt.Fprintf(&b, "ID: %s\n", a.ID)
		}
		fmt.Fprintf(&b, "Title: %s\nURL: %s\nExcerpt: %s\n", a.Title, a.URL, a.Excerpt)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n---\n")
}
