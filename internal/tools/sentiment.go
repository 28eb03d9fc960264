package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/conversation"
	"github.com/maxghenis/imessage-mcp/internal/format"
)

func sentimentTool() mcp.Tool {
	return mcp.NewTool("analyze_message_sentiment",
		mcp.WithDescription("Find received messages containing hostile or custom keywords, by date or as a list"),
		mcp.WithString("identifier", mcp.Required(), mcp.Description("Phone number, email, contact name, or group:<id>")),
		mcp.WithArray("keywords",
			mcp.Description("Keywords to match case-insensitively (default: "+strings.Join(conversation.DefaultKeywords, ", ")+")"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("days_back", mcp.Description("How many days of history to scan (default 60)"), mcp.DefaultNumber(60)),
		mcp.WithBoolean("group_by_date", mcp.Description("Count matches per day instead of listing them (default true)"), mcp.DefaultBool(true)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
}

func sentimentHandler(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		identifier := strArg(args, "identifier")
		if identifier == "" {
			return errorResult("identifier is required"), nil
		}
		opts := conversation.SentimentOptions{
			Keywords:    stringSliceArg(args, "keywords"),
			DaysBack:    intArg(args, "days_back", 60),
			GroupByDate: boolArg(args, "group_by_date", true),
		}

		return run(ctx, a, "analyze_message_sentiment", func(r *conversation.Reader) (string, error) {
			report, err := r.Sentiment(ctx, identifier, opts)
			if err != nil {
				return "", err
			}
			return format.JSON(report)
		}), nil
	}
}
