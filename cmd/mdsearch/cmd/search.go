package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mdsearch/internal/config"
	"github.com/Aman-CERP/mdsearch/internal/output"
	"github.com/Aman-CERP/mdsearch/internal/service"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	offset int
	json   bool
	local  bool
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Rank documents against a free-text query with BM25 and print the page
of results with highlighted snippets.

The running server answers when there is one; otherwise the catalog is
loaded in-process.

Examples:
  mdsearch search raft consensus
  mdsearch search "error budget" --limit 5 --offset 5
  mdsearch search 人工智能 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, g, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of results to skip")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Search in-process even if a server is running")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, g *globalOptions, query string, opts searchOptions) error {
	return withBackend(ctx, g, opts.local, func(b queryBackend, cfg *config.Config) error {
		resp, err := b.Search(ctx, service.Request{Query: query, Limit: opts.limit, Offset: opts.offset})
		if err != nil {
			return err
		}

		out := output.New(cmd.OutOrStdout(), output.WithMarkers(cfg.Search.MarkOpen, cfg.Search.MarkClose))
		if opts.json {
			return out.JSON(resp)
		}
		out.Results(resp)
		return nil
	})
}
