package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mdsearch/internal/daemon"
	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/output"
)

func newRebuildCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index through the running server",
		Long: `Ask the running server to rebuild its index from scratch. Queries keep
being answered from the previous index until the new one is published.

Without a running server this behaves like 'mdsearch index --plain'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRebuild(cmd.Context(), cmd, g, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the rebuild statistics as JSON")
	return cmd
}

func runRebuild(ctx context.Context, cmd *cobra.Command, g *globalOptions, jsonOutput bool) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	dcfg, err := daemonConfig(cfg)
	if err != nil {
		return err
	}
	client := daemon.NewClient(dcfg)
	if !client.IsRunning(ctx) {
		return runIndex(ctx, cmd, g, indexOptions{plain: true, json: jsonOutput})
	}

	rs, err := client.TriggerFullRebuild(ctx)
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())
	if jsonOutput {
		return out.JSON(rs)
	}
	printRebuild(out, rs)
	return nil
}

func printRebuild(out *output.Writer, rs *index.RebuildStats) {
	out.Successf("Rebuilt index: %d documents (generation %d) in %s",
		rs.Indexed, rs.Generation, rs.Duration.Round(time.Millisecond))
	if rs.Skipped > 0 || rs.Failed > 0 {
		out.Warningf("%d skipped, %d unreadable; see the server log for details", rs.Skipped, rs.Failed)
	}
}
