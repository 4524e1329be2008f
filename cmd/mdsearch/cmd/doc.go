package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mdsearch/internal/config"
	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/output"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// docOptions holds CLI flags for doc.
type docOptions struct {
	raw   bool
	json  bool
	local bool
}

func newDocCmd(g *globalOptions) *cobra.Command {
	var opts docOptions

	cmd := &cobra.Command{
		Use:   "doc <id>",
		Short: "Print an indexed document",
		Long: `Print the document with the given id, as shown in search results.

--raw prints only the renderable content, without the header.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocID(args[0])
			if err != nil {
				return err
			}
			return runDoc(cmd.Context(), cmd, g, id, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print only the document content")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Read in-process even if a server is running")

	return cmd
}

// parseDocID parses a positive document id.
func parseDocID(s string) (store.DocID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, mderrors.New(mderrors.ErrCodeInvalidID, fmt.Sprintf("invalid document id %q", s), err).
			WithSuggestion("Use the id shown in brackets in search results.")
	}
	return store.DocID(n), nil
}

func runDoc(ctx context.Context, cmd *cobra.Command, g *globalOptions, id store.DocID, opts docOptions) error {
	return withBackend(ctx, g, opts.local, func(b queryBackend, _ *config.Config) error {
		out := output.New(cmd.OutOrStdout())

		if opts.raw {
			content, err := b.RenderableContent(ctx, id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), content)
			return err
		}

		doc, err := b.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if opts.json {
			return out.JSON(doc)
		}
		out.Document(doc)
		return nil
	})
}
