// Package format renders conversations as tool output at one of three
// verbosities: a minimal text block, a compact JSON summary, or a full JSON
// dump.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/maxghenis/imessage-mcp/internal/conversation"
)

type Format string

const (
	Minimal Format = "minimal"
	Compact Format = "compact"
	Full    Format = "full"
)

const (
	searchPreviewLines = 3
	compactRecent      = 10
	timeLayout         = "Jan 2, 3:04 PM"
)

// Parse maps a requested format name to a Format. Empty means minimal; any
// unrecognized name means full.
func Parse(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Minimal):
		return Minimal
	case string(Compact):
		return Compact
	default:
		return Full
	}
}

// JSON serializes v without HTML escaping so sent-message markers survive.
func JSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// SearchResults renders the conversations found for query.
func SearchResults(query string, convs []conversation.Conversation, f Format, loc *time.Location) (string, error) {
	switch f {
	case Minimal:
		if len(convs) == 0 {
			return fmt.Sprintf("No conversations found for %q.", query), nil
		}
		blocks := make([]string, len(convs))
		for i := range convs {
			msgs := convs[i].Messages
			if len(msgs) > searchPreviewLines {
				msgs = msgs[:searchPreviewLines]
			}
			blocks[i] = minimalBlock(&convs[i], msgs, loc)
		}
		return strings.Join(blocks, "\n\n"), nil

	case Compact:
		out := compactSearch{Query: query, Found: len(convs), Conversations: []compactEntry{}}
		for _, c := range convs {
			recent := c.Messages
			if len(recent) > compactRecent {
				recent = recent[:compactRecent]
			}
			out.Conversations = append(out.Conversations, compactEntry{
				Type:           c.Kind,
				Name:           c.Name,
				Identifier:     c.Identifier,
				MessageCount:   len(c.Messages),
				RecentMessages: recent,
			})
		}
		return JSON(out)

	default:
		out := fullSearch{Query: query, Results: []fullEntry{}}
		for _, c := range convs {
			e := fullEntry{Type: c.Kind, Count: len(c.Messages), Messages: c.Messages}
			if c.Kind == conversation.Group {
				e.Name, e.ID = c.Name, c.ChatID
			} else {
				e.Contact, e.Identifier, e.Handles = c.Name, c.Identifier, c.Handles
			}
			out.Results = append(out.Results, e)
		}
		return JSON(out)
	}
}

// Conversation renders a single conversation read.
func Conversation(conv *conversation.Conversation, f Format, daysBack int, loc *time.Location) (string, error) {
	switch f {
	case Minimal:
		return minimalBlock(conv, conv.Messages, loc), nil
	case Compact:
		return JSON(compactConversation{
			Conversation: conv.Name,
			Type:         conv.Kind,
			MessageCount: len(conv.Messages),
			PeriodDays:   daysBack,
			Messages:     conv.Messages,
		})
	default:
		e := fullEntry{Type: conv.Kind, Messages: conv.Messages}
		if conv.Kind == conversation.Group {
			e.Name, e.ID = conv.Name, conv.ChatID
		} else {
			e.Contact, e.Handles = conv.Name, conv.Handles
		}
		return JSON(e)
	}
}

func header(c *conversation.Conversation) string {
	if c.Kind == conversation.Group {
		return fmt.Sprintf("📱 %s (%d msgs)", c.Name, len(c.Messages))
	}
	return fmt.Sprintf("👤 %s (%d msgs, %d handles)", c.Name, len(c.Messages), c.Handles)
}

func minimalBlock(c *conversation.Conversation, msgs []conversation.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var sb strings.Builder
	sb.WriteString(header(c))
	for _, m := range msgs {
		fmt.Fprintf(&sb, "\n  %s %s: %s", m.Time.In(loc).Format(timeLayout), senderLabel(c, m), m.Text)
	}
	return sb.String()
}

// senderLabel reads direction from the sent marker already in the text.
func senderLabel(c *conversation.Conversation, m conversation.Message) string {
	if c.Kind == conversation.Group {
		return m.Sender
	}
	if strings.HasPrefix(m.Text, conversation.SentMarker) {
		return conversation.You
	}
	return c.Name
}

type compactSearch struct {
	Query         string         `json:"query"`
	Found         int            `json:"found"`
	Conversations []compactEntry `json:"conversations"`
}

type compactEntry struct {
	Type           conversation.Kind      `json:"type"`
	Name           string                 `json:"name"`
	Identifier     string                 `json:"identifier"`
	MessageCount   int                    `json:"message_count"`
	RecentMessages []conversation.Message `json:"recent_messages"`
}

type compactConversation struct {
	Conversation string                 `json:"conversation"`
	Type         conversation.Kind      `json:"type"`
	MessageCount int                    `json:"message_count"`
	PeriodDays   int                    `json:"period_days"`
	Messages     []conversation.Message `json:"messages"`
}

type fullSearch struct {
	Query   string      `json:"query"`
	Results []fullEntry `json:"results"`
}

// fullEntry carries contact fields for individuals and name/id for groups.
type fullEntry struct {
	Type       conversation.Kind      `json:"type"`
	Contact    string                 `json:"contact,omitempty"`
	Name       string                 `json:"name,omitempty"`
	Identifier string                 `json:"identifier,omitempty"`
	ID         int64                  `json:"id,omitempty"`
	Handles    int                    `json:"handles,omitempty"`
	Count      int                    `json:"count,omitempty"`
	Messages   []conversation.Message `json:"messages"`
}
