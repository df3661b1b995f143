package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pongogo/internal/config"
	"pongogo/internal/db"
	"pongogo/internal/discovery"
)

var discoveriesStatus string

var discoveriesCmd = &cobra.Command{
	Use:   "discoveries",
	Short: "Manage discovered knowledge candidates",
}

var discoveriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discoveries, optionally filtered by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		system, database, err := openDiscoverySystem()
		if err != nil {
			return err
		}
		defer database.Close()

		artifacts, err := system.List(db.ArtifactStatus(discoveriesStatus), 100)
		if err != nil {
			return err
		}
		if len(artifacts) == 0 {
			fmt.Println("No discoveries found.")
			return nil
		}
		for _, a := range artifacts {
			title := a.SectionTitle
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("#%-4d %-10s %-9s %s - %s\n", a.ID, a.Status, a.SourceType, a.SourceFile, title)
		}
		return nil
	},
}

var discoveriesPromoteCmd = &cobra.Command{
	Use:   "promote <id>",
	Short: "Promote a discovery to an instruction file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid discovery id: %s", args[0])
		}

		system, database, err := openDiscoverySystem()
		if err != nil {
			return err
		}
		defer database.Close()

		path, err := system.Promote(id)
		if err != nil {
			return err
		}
		fmt.Printf("Promoted discovery #%d -> %s\n", id, path)
		return nil
	},
}

var discoveriesArchiveCmd = &cobra.Command{
	Use:   "archive <id> [reason]",
	Short: "Archive a discovery as not useful",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid discovery id: %s", args[0])
		}
		reason := ""
		if len(args) > 1 {
			reason = args[1]
		}

		system, database, err := openDiscoverySystem()
		if err != nil {
			return err
		}
		defer database.Close()

		ok, err := system.Archive(id, reason)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("discovery not found: %d", id)
		}
		fmt.Printf("Archived discovery #%d\n", id)
		return nil
	},
}

var discoveriesScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Re-run the repository knowledge scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		system, database, err := openDiscoverySystem()
		if err != nil {
			return err
		}
		defer database.Close()

		result, err := system.Scan()
		if err != nil {
			return err
		}
		fmt.Printf("Scan complete: %d sections, %d new discoveries\n",
			result.TotalSections, result.NewDiscoveries)
		return nil
	},
}

func openDiscoverySystem() (*discovery.System, *db.Database, error) {
	projectRoot := config.ProjectRoot()
	database, err := db.Open(db.DefaultPath(projectRoot))
	if err != nil {
		return nil, nil, err
	}
	return discovery.NewSystem(projectRoot, database), database, nil
}

func init() {
	discoveriesListCmd.Flags().StringVar(&discoveriesStatus, "status", "", "filter by status (DISCOVERED, REVIEWING, PROMOTED, ARCHIVED)")
	discoveriesCmd.AddCommand(discoveriesListCmd)
	discoveriesCmd.AddCommand(discoveriesPromoteCmd)
	discoveriesCmd.AddCommand(discoveriesArchiveCmd)
	discoveriesCmd.AddCommand(discoveriesScanCmd)
}
