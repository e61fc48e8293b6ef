package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"venom/internal/cache"
	"venom/internal/client"
	"venom/internal/config"
	"venom/internal/engine"
	"venom/internal/logging"
	"venom/internal/sandbox"
	"venom/internal/server"
	"venom/internal/store"
	"venom/internal/ui/shell"
)

var (
	configPath string
	apiBase    string
	debug      bool
	style      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "venom",
		Short:        "Venom SuperEngine - skills, side projects and optimizer console",
		RunE:         runTUI,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default $VENOM_CONFIG or ~/.config/venom/config.toml)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "API base forwarded to every panel; empty serves the backend in-process")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&style, "report-style", "", "Glamour style for optimizer reports (dark, light, notty, ...)")

	rootCmd.AddCommand(newServeCmd(), newAuditCmd(), newSkillCmd(), newConfigCmd())
	return rootCmd
}

// loadConfig applies flag overrides on top of the file and environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("api-base") {
		cfg.APIBase = apiBase
	}
	return cfg, nil
}

// backend is the in-process server stack.
type backend struct {
	store  *store.Store
	engine *engine.Engine
	server *server.Server
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("database %s: %w", cfg.Database.Path, err)
	}
	runner := sandbox.NewRunner(cfg.Sandbox.Python, cfg.Sandbox.Timeout, logger.Named("sandbox"))
	eng, err := engine.New(st, runner, engine.Options{
		UploadDir: cfg.Skills.UploadDir,
		SkillsDir: cfg.Skills.Dir,
		Logger:    logger.Named("engine"),
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &backend{store: st, engine: eng, server: server.New(eng, logger.Named("http"))}, nil
}

func (b *backend) Close() error { return b.store.Close() }

// clientFactory builds HTTP clients that share one response cache.
func clientFactory(cfg config.Config, origin string, logger *zap.Logger) func(apiBase string) *client.Client {
	ch := cache.NewCache(cfg.Client.CacheTTL)
	return func(apiBase string) *client.Client {
		return client.New(apiBase,
			client.WithOrigin(origin),
			client.WithTimeout(cfg.Client.Timeout),
			client.WithCache(ch),
			client.WithLogger(logger.Named("client")),
		)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logFile := cfg.Log.File
	if logFile == "" {
		if logFile, err = logging.DefaultFile(); err != nil {
			return err
		}
	}
	logger, err := logging.New(cfg.Log.Level, logFile, debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := withSignals(cmd.Context())
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	origin := client.DefaultOrigin
	if cfg.APIBase == "" {
		b, err := openBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		if err := b.engine.Startup(ctx); err != nil {
			return err
		}
		ln, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
		}
		origin = cfg.Origin()
		g.Go(func() error { return b.server.Serve(ctx, ln) })
		logger.Info("serving backend in-process", zap.String("addr", cfg.Server.Addr))
	}

	newClient := clientFactory(cfg, origin, logger)
	if cfg.APIBase != "" {
		if err := checkBackend(ctx, newClient(cfg.APIBase)); err != nil {
			logger.Warn("backend health check failed", zap.String("api_base", cfg.APIBase), zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}

	root, err := shell.New(cfg.APIBase, panelFactories(newClient, style))
	if err != nil {
		return err
	}
	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx))
	g.Go(func() error {
		defer stop()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// checkBackend asks a remote backend for its status before the TUI starts.
func checkBackend(ctx context.Context, c *client.Client) error {
	st, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("backend at %s unreachable: %w", c.URL("/"), err)
	}
	if st.Status != "ok" {
		return fmt.Errorf("backend at %s reports %q: %s", c.URL("/"), st.Status, st.Message)
	}
	return nil
}

// withSignals cancels on SIGINT or SIGTERM.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
