package format

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/maxghenis/imessage-mcp/internal/conversation"
)

func msg(at time.Time, text, sender string) conversation.Message {
	return conversation.Message{
		Date:   at.UTC().Format(conversation.DateLayout),
		Text:   text,
		Sender: sender,
		Time:   at,
	}
}

func fixtures() []conversation.Conversation {
	base := time.Date(2026, 3, 9, 15, 4, 0, 0, time.UTC)
	var many []conversation.Message
	for i := 0; i < 12; i++ {
		many = append(many, msg(base.Add(-time.Duration(i)*time.Hour), "m", ""))
	}
	return []conversation.Conversation{
		{
			Kind:       conversation.Individual,
			Name:       "Alice Smith",
			Identifier: "+15551234567",
			Handles:    2,
			Messages: []conversation.Message{
				msg(base, "> on my way", ""),
				msg(base.Add(-time.Hour), "where are you?", ""),
			},
		},
		{
			Kind:       conversation.Group,
			Name:       "Family",
			Identifier: "group:7",
			ChatID:     7,
			Messages:   many,
		},
	}
}

func TestParse(t *testing.T) {
	tests := map[string]Format{
		"":        Minimal,
		"minimal": Minimal,
		"Compact": Compact,
		"full":    Full,
		"verbose": Full,
	}
	for in, want := range tests {
		if got := Parse(in); got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchResults_Minimal(t *testing.T) {
	got, err := SearchResults("alice", fixtures(), Minimal, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"👤 Alice Smith (2 msgs, 2 handles)",
		"  Mar 9, 3:04 PM You: > on my way",
		"  Mar 9, 2:04 PM Alice Smith: where are you?",
		"",
		"📱 Family (12 msgs)",
		"  Mar 9, 3:04 PM : m",
		"  Mar 9, 2:04 PM : m",
		"  Mar 9, 1:04 PM : m",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchResults_MinimalEmpty(t *testing.T) {
	got, err := SearchResults("zelda", nil, Minimal, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `"zelda"`) {
		t.Errorf("got %q, want the query named", got)
	}
}

func TestSearchResults_Compact(t *testing.T) {
	got, err := SearchResults("alice", fixtures(), Compact, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Query         string `json:"query"`
		Found         int    `json:"found"`
		Conversations []struct {
			Type           string            `json:"type"`
			Name           string            `json:"name"`
			Identifier     string            `json:"identifier"`
			MessageCount   int               `json:"message_count"`
			RecentMessages []json.RawMessage `json:"recent_messages"`
		} `json:"conversations"`
	}
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, got)
	}
	if out.Found != 2 || out.Query != "alice" {
		t.Fatalf("header: found %d query %q", out.Found, out.Query)
	}
	group := out.Conversations[1]
	if group.Identifier != "group:7" || group.MessageCount != 12 || len(group.RecentMessages) != compactRecent {
		t.Errorf("group entry: %+v", group)
	}
	if !strings.Contains(got, `"> on my way"`) {
		t.Errorf("sent marker escaped in %s", got)
	}
}

func TestSearchResults_Full(t *testing.T) {
	got, err := SearchResults("alice", fixtures(), Full, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Results[0]["contact"] != "Alice Smith" || out.Results[0]["handles"] != float64(2) {
		t.Errorf("individual entry: %v", out.Results[0])
	}
	if out.Results[1]["name"] != "Family" || out.Results[1]["id"] != float64(7) {
		t.Errorf("group entry: %v", out.Results[1])
	}
	if msgs := out.Results[1]["messages"].([]any); len(msgs) != 12 {
		t.Errorf("full messages: got %d, want 12", len(msgs))
	}
}

func TestConversation(t *testing.T) {
	conv := fixtures()[1]
	conv.Messages = conv.Messages[:5]
	for i := range conv.Messages {
		conv.Messages[i].Sender = "You"
	}

	t.Run("minimal lists every message", func(t *testing.T) {
		got, err := Conversation(&conv, Minimal, 60, time.UTC)
		if err != nil {
			t.Fatal(err)
		}
		if lines := strings.Split(got, "\n"); len(lines) != 6 {
			t.Errorf("lines: got %d, want 6\n%s", len(lines), got)
		}
	})

	t.Run("compact", func(t *testing.T) {
		got, err := Conversation(&conv, Compact, 60, time.UTC)
		if err != nil {
			t.Fatal(err)
		}
		var out compactConversation
		if err := json.Unmarshal([]byte(got), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if out.Conversation != "Family" || out.MessageCount != 5 || out.PeriodDays != 60 {
			t.Errorf("got %+v", out)
		}
	})

	t.Run("location", func(t *testing.T) {
		loc := time.FixedZone("EST", -5*3600)
		got, err := Conversation(&conv, Minimal, 60, loc)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got, "Mar 9, 10:04 AM You: m") {
			t.Errorf("got %q", got)
		}
	})
}
