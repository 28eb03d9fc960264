package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/conversation"
	"github.com/maxghenis/imessage-mcp/internal/format"
)

func searchAndReadTool() mcp.Tool {
	return mcp.NewTool("search_and_read",
		mcp.WithDescription("Find contacts and group chats matching a name, phone number or email and read their recent messages in one call"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name, phone number, email or group name")),
		mcp.WithBoolean("include_groups", mcp.Description("Also search group chats by name (default true)"), mcp.DefaultBool(true)),
		mcp.WithNumber("limit", mcp.Description("Maximum messages per conversation (default 15)"), mcp.DefaultNumber(15)),
		mcp.WithNumber("days_back", mcp.Description("How many days of history to read (default 30)"), mcp.DefaultNumber(30)),
		withFormat(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
}

func searchAndReadHandler(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		query := strArg(args, "query")
		if query == "" {
			return errorResult("query is required"), nil
		}
		opts := conversation.SearchOptions{
			IncludeGroups: boolArg(args, "include_groups", true),
			Limit:         limitArg(args, "limit", 15),
			DaysBack:      intArg(args, "days_back", 30),
		}
		f := format.Parse(strArg(args, "format"))

		return run(ctx, a, "search_and_read", func(r *conversation.Reader) (string, error) {
			convs, err := r.SearchAndRead(ctx, query, opts)
			if err != nil {
				return "", err
			}
			text, err := format.SearchResults(query, convs, f, a.Location)
			if err != nil {
				return "", err
			}
			if f == format.Minimal && len(convs) > 0 {
				text = messagePreamble + text
			}
			return text, nil
		}), nil
	}
}

func withFormat() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Output format: minimal text, compact JSON summary, or full JSON (default minimal)"),
		mcp.Enum(string(format.Minimal), string(format.Compact), string(format.Full)),
		mcp.DefaultString(string(format.Minimal)),
	)
}
