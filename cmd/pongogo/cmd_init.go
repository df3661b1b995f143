package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pongogo/internal/config"
	"pongogo/internal/db"
	"pongogo/internal/discovery"
	"pongogo/internal/patterns"
)

var initSkipScan bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .pongogo/ for the current project",
	Long: `Writes .pongogo/config.yaml, creates the instructions/ skeleton, opens
the database (applying the schema), and runs the repository knowledge scan
over CLAUDE.md, wiki/, and docs/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectRoot := config.ProjectRoot()

		cfg := config.Default()
		cfgPath, err := cfg.Write(projectRoot)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", cfgPath)

		instructionsDir := filepath.Join(projectRoot, ".pongogo", "instructions")
		if err := os.MkdirAll(instructionsDir, 0755); err != nil {
			return fmt.Errorf("failed to create instructions directory: %w", err)
		}
		fmt.Printf("Created %s\n", instructionsDir)

		database, err := db.Open(db.DefaultPath(projectRoot))
		if err != nil {
			return err
		}
		defer database.Close()
		version, _ := database.SchemaVersion()
		fmt.Printf("Database ready (schema %s)\n", version)

		seeded := seedTriggers(database)
		fmt.Printf("Seeded %d built-in triggers\n", seeded)

		if !initSkipScan {
			system := discovery.NewSystem(projectRoot, database)
			result, err := system.Scan()
			if err != nil {
				logger.Warn("discovery scan failed", zap.Error(err))
			} else {
				fmt.Printf("Discovery scan: %d sections, %d new discoveries\n",
					result.TotalSections, result.NewDiscoveries)
			}
		}

		fmt.Println("Pongogo initialized. Start the server with: pongogo serve")
		return nil
	},
}

// seedTriggers loads the built-in pattern dictionaries into the
// routing_triggers table so they can be inspected and extended per project.
func seedTriggers(database *db.Database) int {
	count := 0

	violations := map[string]string{}
	for word := range patterns.ViolationWords {
		violations[word] = ""
	}
	count += database.BulkLoadTriggers(db.TriggerViolation, violations, db.TriggerSourceBuiltIn)

	frictions := map[string]string{}
	for ftype, re := range patterns.FrictionPatterns {
		frictions[ftype] = re.String()
	}
	count += database.BulkLoadTriggers(db.TriggerFriction, frictions, db.TriggerSourceBuiltIn)

	count += database.BulkLoadTriggers(db.TriggerGuidanceExplicit, map[string]string{
		"explicit_guidance": patterns.ExplicitGuidance.String(),
	}, db.TriggerSourceBuiltIn)
	count += database.BulkLoadTriggers(db.TriggerGuidanceImplicit, map[string]string{
		"implicit_guidance": patterns.ImplicitGuidance.String(),
	}, db.TriggerSourceBuiltIn)

	return count
}

func init() {
	initCmd.Flags().BoolVar(&initSkipScan, "skip-scan", false, "skip the repository knowledge scan")
}
