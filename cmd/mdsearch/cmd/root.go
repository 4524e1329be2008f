// Package cmd provides the CLI commands for mdsearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mdsearch/internal/config"
	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/logging"
	"github.com/Aman-CERP/mdsearch/internal/profiling"
	"github.com/Aman-CERP/mdsearch/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	debug      bool
	configPath string
	root       string
	dataDir    string
	profile    profiling.Options

	profiler       *profiling.Session
	logger         *slog.Logger
	loggingCleanup func()
}

// NewRootCmd creates the root command for the mdsearch CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "mdsearch",
		Short: "Ranked full-text search over a directory of Markdown notes",
		Long: `mdsearch keeps a BM25 index of a directory of Markdown and text files in
sync with the filesystem and answers ranked queries with highlighted snippets.

Run 'mdsearch serve' in the directory to watch it and answer queries from
the CLI, or 'mdsearch serve --mcp' to expose the index to an MCP client.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.startProfiling(); err != nil {
				return err
			}
			return opts.startLogging(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			opts.stopLogging()
			return opts.stopProfiling()
		},
	}
	cmd.SetVersionTemplate("mdsearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.mdsearch/logs/")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Project config file (default: <root>/.mdsearch.yaml)")
	cmd.PersistentFlags().StringVar(&opts.root, "root", "", "Directory to index (default: current directory)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory for the catalog, socket and lock")
	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newDocCmd(opts))
	cmd.AddCommand(newRebuildCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, mderrors.FormatForCLI(err))
	}
	return err
}

// startLogging configures the default logger for short-lived commands:
// warnings to stderr, or everything to the log file and stderr with
// --debug. serve configures its own logging.
func (o *globalOptions) startLogging(cmd *cobra.Command) error {
	if cmd.Name() == "serve" {
		return nil
	}

	cfg := logging.StderrConfig("warn")
	if o.debug {
		cfg = logging.DefaultConfig()
		cfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.logger = logger
	o.loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func (o *globalOptions) startProfiling() error {
	if !o.profile.Enabled() {
		return nil
	}
	p, err := profiling.Start(o.profile)
	if err != nil {
		return err
	}
	o.profiler = p
	return nil
}

func (o *globalOptions) stopProfiling() error {
	err := o.profiler.Stop()
	o.profiler = nil
	return err
}

func (o *globalOptions) stopLogging() {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

// loggerOrDefault returns the command logger.
func (o *globalOptions) loggerOrDefault() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slog.Default()
}

// loadConfig loads the layered configuration and applies the persistent
// flags, which take precedence over every file and environment layer.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	dir := o.root
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(config.ExpandHome(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	cfg, err := config.LoadFile(dir, o.configPath)
	if err != nil {
		return nil, err
	}
	if o.root != "" {
		cfg.Paths.Root = dir
	}
	if o.dataDir != "" {
		cfg.Paths.DataDir = o.dataDir
	}
	if o.debug {
		cfg.Server.LogLevel = "debug"
	}
	return cfg, nil
}
