package cmd

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/mdsearch/internal/config"
	"github.com/Aman-CERP/mdsearch/internal/daemon"
	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// queryBackend answers read requests. Both the daemon client and an
// in-process service satisfy it.
type queryBackend interface {
	Search(ctx context.Context, req service.Request) (*service.Response, error)
	GetDocument(ctx context.Context, id store.DocID) (*store.Document, error)
	RenderableContent(ctx context.Context, id store.DocID) (string, error)
}

var (
	_ queryBackend = (*daemon.Client)(nil)
	_ queryBackend = (*service.Service)(nil)
)

// withBackend runs fn against the running server when one answers, and
// otherwise against an in-process index loaded from the catalog. A server
// that cannot be reached mid-call also falls back; errors the server
// reports are returned as they are.
func withBackend(ctx context.Context, g *globalOptions, local bool, fn func(queryBackend, *config.Config) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := g.loggerOrDefault()

	if !local {
		dcfg, err := daemonConfig(cfg)
		if err != nil {
			return err
		}
		client := daemon.NewClient(dcfg)
		if client.IsRunning(ctx) {
			err := fn(client, cfg)
			if _, reported := mderrors.As(err); err == nil || reported || ctx.Err() != nil {
				return err
			}
			logger.Warn("daemon_call_failed_using_local", slog.String("error", err.Error()))
		}
	}

	st, err := openStack(ctx, cfg, stackOptions{logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if st.store.Stats().Documents == 0 {
		return mderrors.StoreError("no index found", nil).
			WithSuggestion("Run 'mdsearch index' to build the index, or 'mdsearch serve' to keep it in sync.")
	}
	return fn(st.service, cfg)
}
