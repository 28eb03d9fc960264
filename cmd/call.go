package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/tools"
)

var errToolFailed = errors.New("tool returned an error")

var callCmd = &cobra.Command{
	Use:   "call <tool> [json-arguments]",
	Short: "Run one tool locally and print its result",
	Example: `  imessage-mcp call search_contacts '{"query":"Sarah"}'
  imessage-mcp call read_conversation '{"identifier":"group:42","format":"compact"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}

		toolArgs := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
				return fmt.Errorf("parse arguments: %w", err)
			}
		}

		res, ok := tools.Call(cmd.Context(), a, args[0], toolArgs)
		if !ok {
			return fmt.Errorf("unknown tool %q", args[0])
		}
		for _, c := range res.Content {
			if tc, ok := c.(mcp.TextContent); ok {
				fmt.Fprintln(cmd.OutOrStdout(), tc.Text)
			}
		}
		if res.IsError {
			return errToolFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
}
