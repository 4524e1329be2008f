package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mdsearch/internal/daemon"
	"github.com/Aman-CERP/mdsearch/internal/store"
	"github.com/Aman-CERP/mdsearch/internal/ui"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index and server status",
		Long: `Show the document and term counts, the index generation, the watcher
and queue state, and the catalog size.

The running server reports live state; without one the catalog is
loaded in-process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := collectStatus(cmd.Context(), g)
			if err != nil {
				return err
			}
			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(*info)
			}
			return r.Render(*info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colours")
	return cmd
}

func collectStatus(ctx context.Context, g *globalOptions) (*ui.StatusInfo, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	info := &ui.StatusInfo{DataDir: dataDir}
	if fi, err := os.Stat(filepath.Join(dataDir, store.CatalogFile)); err == nil {
		info.CatalogSize = fi.Size()
		info.LastIndexed = fi.ModTime()
	}

	dcfg, err := daemonConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := daemon.NewClient(dcfg)
	if client.IsRunning(ctx) {
		res, err := client.Status(ctx)
		if err == nil {
			info.Status = res.Status
			info.Source = "daemon"
			info.PID = res.PID
			info.Uptime = res.Uptime
			info.Version = res.Version
			return info, nil
		}
		g.loggerOrDefault().Warn("daemon_status_failed")
	}

	st, err := openStack(ctx, cfg, stackOptions{logger: g.loggerOrDefault()})
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	info.Status = st.service.Status()
	info.Source = "local"
	return info, nil
}
