package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	pocketmcp "github.com/kazuph/mcp-pocket"
	"github.com/kazuph/mcp-pocket/internal/config"
	"github.com/kazuph/mcp-pocket/internal/credentials"
	"github.com/kazuph/mcp-pocket/internal/errortypes"
	"github.com/kazuph/mcp-pocket/internal/logger"
	"github.com/kazuph/mcp-pocket/internal/pocket"
)

// errToolFailed makes `call` exit non-zero after printing an error result.
var errToolFailed = errors.New("tool call reported an error")

type rootOptions struct {
	configPath string
	mode       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "mcp-pocket",
		Short: "MCP server for the Pocket API",
		Long: "mcp-pocket exposes your Pocket reading list to MCP clients over stdio: " +
			"fetch_articles lists saved articles and mark_as_read archives one.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigFilename, "path to config file")
	root.PersistentFlags().StringVar(&opts.mode, "mode", "", "article mode: unread or all (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(serveCmd(opts))
	root.AddCommand(toolsCmd(opts))
	root.AddCommand(callCmd(opts))
	root.AddCommand(authCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())
	return root
}

// loadConfig loads the config file and applies the flag overrides.
func loadConfig(opts *rootOptions) (*pocketmcp.Config, error) {
	cfg, err := config.LoadConfigWithPath(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.mode != "" {
		if _, err := pocket.ParseMode(opts.mode); err != nil {
			return nil, errortypes.ValidationError(err, "invalid --mode")
		}
		cfg.Pocket.Mode = opts.mode
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, nil
}

func newServer(opts *rootOptions) (*pocketmcp.Server, *slog.Logger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	appLogger := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	srv, err := pocketmcp.NewServer(pocketmcp.ServerOptions{
		Config: cfg,
		Logger: appLogger,
	})
	if err != nil {
		return nil, appLogger, err
	}
	return srv, appLogger, nil
}

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Pocket tools over MCP stdio (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts *rootOptions) error {
	srv, appLogger, err := newServer(opts)
	if err != nil {
		if appLogger != nil {
			errortypes.LogError(appLogger, err)
		}
		return err
	}

	setupSignalHandler(srv, appLogger)

	appLogger.Info("mcp-pocket MCP server starting", "version", version)
	if err := srv.Start(); err != nil {
		err = errortypes.InternalError(err, "MCP server failed")
		errortypes.LogError(appLogger, err)
		return err
	}
	return srv.Stop()
}

// setupSignalHandler stops the server and exits on SIGINT or SIGTERM.
func setupSignalHandler(srv *pocketmcp.Server, log *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, terminating gracefully...")
		if err := srv.Stop(); err != nil {
			errortypes.LogError(log, err)
		}
		log.Info("Shutdown complete")
		os.Exit(0)
	}()
}

func toolsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool descriptors as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, _, err := newServer(opts)
			if err != nil {
				return err
			}
			defer srv.Stop()
			return writeJSON(cmd.OutOrStdout(), srv.Tools())
		},
	}
}

func callCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-args]",
		Short: "Invoke one tool and print its result",
		Example: `  mcp-pocket call fetch_articles '{"count":5}'
  mcp-pocket call mark_as_read '{"itemId":"12345"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			arguments, err := parseArguments(args[1:])
			if err != nil {
				return err
			}

			srv, _, err := newServer(opts)
			if err != nil {
				return err
			}
			defer srv.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result := srv.CallTool(ctx, args[0], arguments)
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.IsError {
				return errToolFailed
			}
			return nil
		},
	}
}

// parseArguments decodes the optional JSON object argument of `call`.
func parseArguments(args []string) (map[string]interface{}, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	var arguments map[string]interface{}
	if err := json.Unmarshal([]byte(args[0]), &arguments); err != nil {
		return nil, errortypes.ValidationError(err, "tool arguments must be a JSON object")
	}
	return arguments, nil
}

func authCmd() *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage Pocket credentials in the OS keyring",
	}

	var creds pocket.Credentials
	set := &cobra.Command{
		Use:   "set",
		Short: "Store the consumer key and access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.ConsumerKey == "" {
				creds.ConsumerKey = os.Getenv("POCKET_CONSUMER_KEY")
			}
			if creds.AccessToken == "" {
				creds.AccessToken = os.Getenv("POCKET_ACCESS_TOKEN")
			}
			if !creds.Valid() {
				return errortypes.ValidationError(errors.New("consumer key and access token are required"), "")
			}
			if err := credentials.Save(creds); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved to keyring")
			return nil
		},
	}
	set.Flags().StringVar(&creds.ConsumerKey, "consumer-key", "", "Pocket consumer key (default $POCKET_CONSUMER_KEY)")
	set.Flags().StringVar(&creds.AccessToken, "access-token", "", "Pocket access token (default $POCKET_ACCESS_TOKEN)")

	status := &cobra.Command{
		Use:   "status",
		Short: "Report which credentials are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			stored, err := credentials.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", credentials.ConsumerKeyName, presence(stored.ConsumerKey))
			fmt.Fprintf(out, "%s: %s\n", credentials.AccessTokenName, presence(stored.AccessToken))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credentials.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed from keyring")
			return nil
		},
	}

	auth.AddCommand(set, status, clearCmd)
	return auth
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFilename
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errortypes.ValidationError(fmt.Errorf("%s already exists", path), "use --force to overwrite")
			}
			if err := config.NewConfig().SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cfgCmd.AddCommand(initCmd)
	return cfgCmd
}

func presence(value string) string {
	if value == "" {
		return "not set"
	}
	return "set"
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcp-pocket %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
