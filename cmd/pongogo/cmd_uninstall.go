package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pongogo/internal/config"
)

var uninstallPurge bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall-cleanup",
	Short: "Remove generated .pongogo artifacts from this project",
	Long: `Removes the database, logs, and generated config. User-authored
instruction files are kept unless --purge is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pongogoDir := filepath.Join(config.ProjectRoot(), ".pongogo")
		if _, err := os.Stat(pongogoDir); os.IsNotExist(err) {
			fmt.Println("Nothing to clean up.")
			return nil
		}

		if uninstallPurge {
			if err := os.RemoveAll(pongogoDir); err != nil {
				return fmt.Errorf("failed to remove %s: %w", pongogoDir, err)
			}
			fmt.Printf("Removed %s\n", pongogoDir)
			return nil
		}

		// Keep instructions/; remove generated state. WAL sidecar files go
		// with the database.
		generated := []string{
			"config.yaml",
			"pongogo.db", "pongogo.db-wal", "pongogo.db-shm",
			"logs",
			filepath.Join("instructions", "_discovered"),
		}
		for _, name := range generated {
			path := filepath.Join(pongogoDir, name)
			if err := os.RemoveAll(path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not remove %s: %v\n", path, err)
				continue
			}
		}
		fmt.Printf("Cleaned generated state under %s (instructions kept; use --purge to remove everything)\n", pongogoDir)
		return nil
	},
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallPurge, "purge", false, "also remove user instruction files")
}
