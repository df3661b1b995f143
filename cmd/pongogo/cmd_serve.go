package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pongogo/internal/config"
	"pongogo/internal/coreinstr"
	"pongogo/internal/db"
	"pongogo/internal/discovery"
	"pongogo/internal/engine"
	"pongogo/internal/logging"
	"pongogo/internal/reload"
	"pongogo/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the knowledge-routing server over stdio",
	Long: `Starts the JSON-RPC server on stdin/stdout with a recursive file
watcher over the user instruction tree. File changes trigger a debounced
reindex with an atomic store/engine swap; requests in flight keep the
snapshot they started with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		projectRoot := config.ProjectRoot()
		if err := logging.Initialize(projectRoot, cfg.Server.LogLevel); err != nil {
			logger.Warn("logging init failed", zap.Error(err))
		}
		defer logging.Close()
		logging.Boot("=== Pongogo %s starting ===", config.Version())

		database, err := db.Open(db.DefaultPath(projectRoot))
		if err != nil {
			// Persistence is optional for routing itself: lookback, event
			// capture, and discovery degrade to no-ops.
			logger.Warn("persistence unavailable", zap.Error(err))
			database = nil
		} else {
			defer database.Close()
		}

		deps := engine.Deps{}
		if database != nil {
			deps.Lookback = database
		}

		engineCfg := &engine.Config{
			Engine:   cfg.Routing.Engine,
			Features: cfg.Routing.Features,
		}
		controller, err := reload.NewController(cfg.KnowledgePath(), coreinstr.Path(), engineCfg, deps)
		if err != nil {
			return err
		}

		var discoverySystem *discovery.System
		if database != nil {
			discoverySystem = discovery.NewSystem(projectRoot, database)
		}

		srv := server.New(cfg, controller, database, discoverySystem)

		store, router := controller.Snapshot()
		logger.Info("server ready",
			zap.Int("instructions", store.Count()),
			zap.String("engine", router.Version()),
			zap.String("knowledge_path", cfg.KnowledgePath()),
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return controller.Watch(ctx)
		})
		g.Go(func() error {
			defer stop()
			return srv.Run(ctx, os.Stdin, os.Stdout)
		})

		if err := g.Wait(); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}
