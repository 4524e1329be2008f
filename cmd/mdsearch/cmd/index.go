package cmd

import (
	"context"
	stderrors "errors"

	"github.com/spf13/cobra"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/output"
	"github.com/Aman-CERP/mdsearch/internal/ui"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	plain   bool
	noColor bool
	json    bool
}

func newIndexCmd(g *globalOptions) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the index from scratch",
		Long: `Scan the root, extract every document and publish a fresh index.

This runs in-process and needs the data directory to itself; while a
server is running use 'mdsearch rebuild' instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, g, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain progress output (no TUI)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colours")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the rebuild statistics as JSON")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, g *globalOptions, opts indexOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	st, err := openStack(ctx, cfg, stackOptions{lock: true, logger: g.loggerOrDefault()})
	if err != nil {
		if stderrors.Is(err, errDataDirBusy) {
			return mderrors.New(mderrors.ErrCodeStoreBusy, err.Error(), err).
				WithSuggestion("A server is running; use 'mdsearch rebuild' to rebuild through it.")
		}
		return err
	}
	defer func() { _ = st.Close() }()

	out := cmd.OutOrStdout()
	renderer := ui.NewRenderer(ui.NewConfig(out,
		ui.WithForcePlain(opts.plain || opts.json),
		ui.WithNoColor(opts.noColor),
		ui.WithRoot(st.root),
	))
	if opts.json {
		renderer = ui.NewPlainRenderer(ui.NewConfig(cmd.ErrOrStderr()))
	}
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	rec := ui.NewRecorder(renderer)
	rs, err := st.sync.Rebuild(ctx, rec.Func())
	if err != nil {
		return err
	}
	rec.Complete(rs)

	if opts.json {
		return output.New(out).JSON(rs)
	}
	return nil
}
