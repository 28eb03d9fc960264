package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxghenis/imessage-mcp/internal/config"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   = NewLogger(zerolog.InfoLevel)
)

var rootCmd = &cobra.Command{
	Use:   "imessage-mcp",
	Short: "Read-only MCP server for the macOS Messages history",
	Long: `imessage-mcp exposes the local Messages database (chat.db) to MCP
clients as a set of read-only tools: search, read, stats and keyword
analysis. Contact names come from the macOS AddressBook when it is readable.

The process needs Full Disk Access to read ~/Library/Messages/chat.db.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger = NewLogger(cfg.LogLevel())
		return nil
	},
}

// NewLogger writes human-readable logs to stderr; stdout carries the MCP
// stdio stream.
func NewLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(level)
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.imessage-mcp/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
}
