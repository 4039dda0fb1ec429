package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/app"
	"github.com/kailas-cloud/docsearch/internal/catalog"
	"github.com/kailas-cloud/docsearch/internal/config"
	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	logpkg "github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
)

// operator is the slice of the lifecycle service the CLI drives.
type operator interface {
	Bootstrap(ctx context.Context) ([]string, error)
	Rebuild(ctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error)
	Resolve(ctx context.Context, alias string) (domcol.Target, error)
}

// opener connects an operator. reindexTimeout overrides the configured
// ceiling when positive. The returned func releases connections.
type opener func(ctx context.Context, reindexTimeout time.Duration) (operator, func(), error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "docsearchctl",
		Short:         "docsearch operator tool",
		Long:          "docsearchctl creates collections and migrates them between backing indices.\nConfiguration is read from config/<ENV>.yaml.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newBootstrapCmd(open),
		newRebuildCmd(open),
		newAliasesCmd(open),
		newVersionCmd(),
	)
	return root
}

// openOperator loads the environment config and builds the lifecycle service
// on a fresh engine handle. Bootstrap on first use is disabled so commands
// only touch what they name.
func openOperator(ctx context.Context, reindexTimeout time.Duration) (operator, func(), error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, nil, err
	}
	if reindexTimeout > 0 {
		cfg.Lifecycle.ReindexTimeoutSec = int(reindexTimeout / time.Second)
	}
	off := false
	cfg.Engine.Bootstrap = &off

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	metrics.RegisterSearchMetrics()

	redis, err := app.NewRedis(ctx, cfg)
	if err != nil {
		// The rebuild lock is optional; the in-process mutex still applies.
		logger.Warn("Redis unavailable, rebuilding without the cross-process lock", zap.Error(err))
		redis = nil
	}

	cat := catalog.New(cfg.Engine.VectorDimensions)
	handle, err := app.NewEngine(cfg, cat)
	if err != nil {
		return nil, nil, err
	}
	svc := app.NewServices(cfg, handle, cat, redis, false)

	closeFn := func() {
		svc.Close()
		_ = logger.Sync()
	}
	return &loggedOperator{Service: svc.Lifecycle, logger: logger}, closeFn, nil
}

// loggedOperator attaches the CLI logger to every call.
type loggedOperator struct {
	*lifecycle.Service
	logger *zap.Logger
}

func (o *loggedOperator) Bootstrap(ctx context.Context) ([]string, error) {
	return o.Service.Bootstrap(logpkg.ContextWithLogger(ctx, o.logger))
}

func (o *loggedOperator) Rebuild(ctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error) {
	return o.Service.Rebuild(logpkg.ContextWithLogger(ctx, o.logger), req)
}

func (o *loggedOperator) Resolve(ctx context.Context, alias string) (domcol.Target, error) {
	return o.Service.Resolve(logpkg.ContextWithLogger(ctx, o.logger), alias)
}
