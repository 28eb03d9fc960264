package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/conversation"
	"github.com/maxghenis/imessage-mcp/internal/format"
)

func readConversationTool() mcp.Tool {
	return mcp.NewTool("read_conversation",
		mcp.WithDescription("Read recent messages with a contact (phone, email or name) or a group chat (group:<id>)"),
		mcp.WithString("identifier", mcp.Required(), mcp.Description("Phone number, email, contact name, or group:<id>")),
		mcp.WithNumber("limit", mcp.Description("Maximum messages to return (default 20)"), mcp.DefaultNumber(20)),
		mcp.WithNumber("days_back", mcp.Description("How many days of history to read (default 60)"), mcp.DefaultNumber(60)),
		mcp.WithBoolean("include_sent", mcp.Description("Include messages you sent (default true)"), mcp.DefaultBool(true)),
		withFormat(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
}

func readConversationHandler(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		identifier := strArg(args, "identifier")
		if identifier == "" {
			return errorResult("identifier is required"), nil
		}
		opts := conversation.ReadOptions{
			Limit:       limitArg(args, "limit", 20),
			DaysBack:    intArg(args, "days_back", 60),
			ExcludeSent: !boolArg(args, "include_sent", true),
		}
		f := format.Parse(strArg(args, "format"))

		return run(ctx, a, "read_conversation", func(r *conversation.Reader) (string, error) {
			conv, err := r.Read(ctx, identifier, opts)
			if err != nil {
				return "", err
			}
			text, err := format.Conversation(conv, f, opts.DaysBack, a.Location)
			if err != nil {
				return "", err
			}
			if f == format.Minimal && len(conv.Messages) > 0 {
				text = messagePreamble + text
			}
			return text, nil
		}), nil
	}
}
