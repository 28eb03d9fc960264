package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/conversation"
	"github.com/maxghenis/imessage-mcp/internal/format"
)

func conversationStatsTool() mcp.Tool {
	return mcp.NewTool("get_conversation_stats",
		mcp.WithDescription("Message counts for a contact or group chat: sent/received totals, or per-participant activity for groups"),
		mcp.WithString("identifier", mcp.Required(), mcp.Description("Phone number, email, contact name, or group:<id>")),
		mcp.WithNumber("days_back", mcp.Description("How many days of history to count (default 60)"), mcp.DefaultNumber(60)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
}

func conversationStatsHandler(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		identifier := strArg(args, "identifier")
		if identifier == "" {
			return errorResult("identifier is required"), nil
		}
		daysBack := intArg(args, "days_back", 60)

		return run(ctx, a, "get_conversation_stats", func(r *conversation.Reader) (string, error) {
			stats, err := r.Stats(ctx, identifier, daysBack)
			if err != nil {
				return "", err
			}
			return format.JSON(stats)
		}), nil
	}
}
