package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pongogo/internal/config"
	"pongogo/internal/coreinstr"
	"pongogo/internal/db"
	"pongogo/internal/engine"
	"pongogo/internal/health"
	"pongogo/internal/knowledge"
	"pongogo/internal/reload"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a health snapshot of the knowledge base and engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		store := knowledge.NewStore(cfg.KnowledgePath(), coreinstr.Path())
		if _, err := store.Load(); err != nil {
			return err
		}
		router, err := engine.New(store, &engine.Config{
			Engine:   cfg.Routing.Engine,
			Features: cfg.Routing.Features,
		}, engine.Deps{})
		if err != nil {
			return err
		}

		var database *db.Database
		if d, err := db.Open(db.DefaultPath(config.ProjectRoot())); err == nil {
			database = d
			defer database.Close()
		} else {
			logger.Warn("persistence unavailable", zap.Error(err))
		}

		snap := health.Collect(store, router, database)

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		fmt.Printf("Pongogo %s\n", snap.Version)
		fmt.Printf("Engine:        %s (available: %v)\n", snap.EngineVersion, snap.AvailableEngines)
		fmt.Printf("Instructions:  %d (%d core, %d user)\n", snap.InstructionCount, snap.CoreCount, snap.UserCount)
		fmt.Printf("Knowledge:     %s\n", snap.KnowledgePath)
		if snap.Database != nil {
			fmt.Printf("Database:      %v (schema %v)\n", snap.Database["database_path"], snap.Database["schema_version"])
			if events, ok := snap.Events["total_count"]; ok {
				fmt.Printf("Events:        %v\n", events)
			}
		} else {
			fmt.Println("Database:      unavailable")
		}
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the instruction index once and report counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		controller, err := reload.NewController(cfg.KnowledgePath(), coreinstr.Path(), &engine.Config{
			Engine:   cfg.Routing.Engine,
			Features: cfg.Routing.Features,
		}, engine.Deps{})
		if err != nil {
			return err
		}

		result := controller.Reindex(true)
		if !result.Success {
			return fmt.Errorf("reindex failed: %s", result.Error)
		}
		fmt.Printf("Reindexed: %d -> %d instructions (engine %s, %.1fms)\n",
			result.OldCount, result.NewCount, result.Engine, result.ElapsedMs)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output JSON")
}
