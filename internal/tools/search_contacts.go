package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/contacts"
	"github.com/maxghenis/imessage-mcp/internal/conversation"
	"github.com/maxghenis/imessage-mcp/internal/format"
)

func searchContactsTool() mcp.Tool {
	return mcp.NewTool("search_contacts",
		mcp.WithDescription("Find Messages handles and address book contacts by name, phone number or email"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name, phone number or email")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
}

type contactSearchResult struct {
	Query         string            `json:"query"`
	ContactsFound int               `json:"contacts_found"`
	Contacts      []string          `json:"contacts"`
	People        []contacts.Person `json:"people"`
}

func searchContactsHandler(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := strArg(req.GetArguments(), "query")
		if query == "" {
			return errorResult("query is required"), nil
		}

		return run(ctx, a, "search_contacts", func(r *conversation.Reader) (string, error) {
			m, err := r.SearchContacts(ctx, query)
			if err != nil {
				return "", err
			}
			out := contactSearchResult{
				Query:         query,
				ContactsFound: len(m.Handles),
				Contacts:      make([]string, len(m.Handles)),
				People:        m.Persons,
			}
			for i, h := range m.Handles {
				out.Contacts[i] = fmt.Sprintf("%s (%s)", h.ID, h.Service)
			}
			return format.JSON(out)
		}), nil
	}
}
