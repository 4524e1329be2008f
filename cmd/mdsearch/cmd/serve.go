package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/mdsearch/internal/daemon"
	"github.com/Aman-CERP/mdsearch/internal/logging"
	"github.com/Aman-CERP/mdsearch/internal/mcp"
	"github.com/Aman-CERP/mdsearch/internal/watcher"
	"github.com/Aman-CERP/mdsearch/pkg/version"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	mcp         bool
	noWatch     bool
	metricsAddr string
}

func newServeCmd(g *globalOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the root, keep the index in sync and answer queries",
		Long: `Start the mdsearch server for the root directory.

The server watches the root, reconciles the persisted catalog with the
filesystem and then applies every change to the index. Queries are answered
over a unix socket (used by 'mdsearch search') and, with --mcp, over
stdio using the Model Context Protocol.

With --mcp nothing but protocol messages is written to stdout; logs go
to ~/.mdsearch/logs/server.log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), g, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.mcp, "mcp", false, "Serve MCP over stdio")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not watch the root for changes")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")

	return cmd
}

func runServe(ctx context.Context, g *globalOptions, opts serveOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		cfg.Server.MetricsAddr = opts.metricsAddr
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	if opts.mcp {
		logCfg = logging.StdioSafeConfig(cfg.Server.LogLevel)
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := openStack(ctx, cfg, stackOptions{
		lock:    true,
		watch:   cfg.Watch.Enabled && !opts.noWatch,
		metrics: cfg.Server.MetricsAddr != "",
		logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	logger.Info("server_starting",
		slog.String("root", st.root),
		slog.String("data_dir", st.dataDir),
		slog.Bool("mcp", opts.mcp),
		slog.String("version", version.Version))

	dcfg, err := daemonConfig(cfg)
	if err != nil {
		return err
	}
	srv, err := daemon.NewServer(dcfg, st.service, daemon.WithLogger(logger), daemon.WithVersion(version.Version))
	if err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)

	// Keep the interface nil with --no-watch.
	var w watcher.Watcher
	if st.watcher != nil {
		w = st.watcher
	}
	group.Go(func() error {
		if err := st.sync.Serve(gctx, w, nil); err != nil && !stderrors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := srv.ListenAndServe(gctx)
		if opts.mcp {
			// The MCP session keeps the server alive; a busy socket only
			// costs CLI access.
			if err != nil {
				logger.Warn("daemon_unavailable", slog.String("error", err.Error()))
			}
			return nil
		}
		// A shutdown request ends the whole server.
		cancel()
		return err
	})

	if opts.mcp {
		mcpSrv, err := mcp.NewServer(st.service, mcp.WithLogger(logger), mcp.WithDebugErrors(cfg.Server.DebugErrors))
		if err != nil {
			return err
		}
		group.Go(func() error {
			defer cancel()
			return mcpSrv.Serve(gctx)
		})
	}

	if addr := cfg.Server.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", st.metrics.Handler())
		httpSrv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		group.Go(func() error {
			logger.Info("metrics_listening", slog.String("addr", addr))
			if err := httpSrv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
			defer done()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	err = group.Wait()
	logger.Info("server_stopped")
	return err
}
