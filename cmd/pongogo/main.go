// Package main implements the pongogo CLI: the knowledge-routing MCP server
// plus its project setup and maintenance commands.
//
// Commands:
//   - serve              - stdio JSON-RPC server with file-watch hot reload
//   - init               - write .pongogo/ config + instruction skeleton, run discovery scan
//   - discoveries        - list / promote / archive discovered knowledge, re-run the scan
//   - status             - health snapshot over store, engine, and database
//   - reindex            - one-shot manual reindex against a running project tree
//   - uninstall-cleanup  - remove generated .pongogo artifacts
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pongogo/internal/config"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pongogo",
	Short: "Pongogo - knowledge-routing MCP server",
	Long: `Pongogo intercepts developer-agent prompts and injects the most relevant
subset of a curated instruction corpus into the agent's context.

Routing is rule/pattern-based: keywords, taxonomy, globs, and contextual
signals, served over a stdio JSON-RPC transport.`,
	Version:       config.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newConsoleLogger(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: $PONGOGO_CONFIG_PATH or <root>/.pongogo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose console output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(discoveriesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(uninstallCmd)
}

// newConsoleLogger builds the stderr console logger. The stdio transport
// owns stdout, so diagnostics never go there.
func newConsoleLogger(verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
