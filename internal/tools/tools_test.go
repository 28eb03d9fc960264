package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/chatdb/chatdbtest"
	"github.com/maxghenis/imessage-mcp/internal/config"
	"github.com/maxghenis/imessage-mcp/internal/contacts/contactstest"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testApp seeds a chat.db with Alice (two handles) and a group chat, and an
// address book naming Alice.
func testApp(t *testing.T) *app.App {
	t.Helper()
	b := chatdbtest.New(t)
	alice := b.Handle("+15551234567")
	aliceLocal := b.Handle("5551234567")
	bob := b.Handle("bob@example.com")
	b.Text(alice, false, testNow.Add(-72*time.Hour), "I hate this")
	b.Text(aliceLocal, true, testNow.Add(-48*time.Hour), "sorry!")
	b.Text(alice, false, testNow.Add(-24*time.Hour), "I really like this")
	chat := b.Chat("chat100", "Weekend Trip")
	b.GroupText(chat, bob, false, testNow.Add(-5*time.Hour), "who's driving?")
	b.GroupText(chat, 0, true, testNow.Add(-4*time.Hour), "me")

	cb := contactstest.New(t)
	cb.Add(contactstest.Person{First: "Alice", Last: "Smith", Phones: []string{"+1 (555) 123-4567"}})

	return newApp(t, b.Done(), cb.Done())
}

func newApp(t *testing.T, chatPath, contactsPath string) *app.App {
	t.Helper()
	cfg := config.Defaults()
	cfg.Data.ChatDB = chatPath
	cfg.Data.ContactsDB = contactsPath
	cfg.Output.Timezone = "UTC"
	a, err := app.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	a.Now = func() time.Time { return testNow }
	return a
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	return r.Content[0].(mcp.TextContent).Text
}

func TestRegisterTools(t *testing.T) {
	a := testApp(t)
	s := server.NewMCPServer("imessage-test", "0.1.0")
	Register(s, a)
	// Just verify it doesn't panic
}

func TestSearchAndRead(t *testing.T) {
	a := testApp(t)
	result := call(t, searchAndReadHandler(a), map[string]any{"query": "Alice"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	text := resultText(result)
	if !strings.HasPrefix(text, messagePreamble) {
		t.Errorf("missing preamble: %s", text)
	}
	for _, want := range []string{"👤 Alice Smith (2 msgs, 1 handles)", "I really like this", "👤 Alice Smith (1 msgs, 1 handles)", "You: > sorry!"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got: %s", want, text)
		}
	}
}

func TestSearchAndReadGroupsCompact(t *testing.T) {
	a := testApp(t)
	result := call(t, searchAndReadHandler(a), map[string]any{"query": "Weekend", "format": "compact"})
	var out struct {
		Found         int `json:"found"`
		Conversations []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"conversations"`
	}
	if err := json.Unmarshal([]byte(resultText(result)), &out); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, resultText(result))
	}
	if out.Found != 1 || out.Conversations[0].Type != "group" || out.Conversations[0].Identifier != "group:1" {
		t.Errorf("got %+v", out)
	}

	result = call(t, searchAndReadHandler(a), map[string]any{"query": "Weekend", "format": "compact", "include_groups": false})
	if !strings.Contains(resultText(result), `"found":0`) {
		t.Errorf("expected no groups, got: %s", resultText(result))
	}
}

func TestSearchAndReadRequiresQuery(t *testing.T) {
	result := call(t, searchAndReadHandler(testApp(t)), map[string]any{})
	if !result.IsError {
		t.Fatal("expected error for missing query")
	}
}

func TestSearchContacts(t *testing.T) {
	a := testApp(t)
	result := call(t, searchContactsHandler(a), map[string]any{"query": "555"})
	var out contactSearchResult
	if err := json.Unmarshal([]byte(resultText(result)), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ContactsFound != 2 || out.Contacts[0] != "+15551234567 (iMessage)" {
		t.Errorf("got %+v", out)
	}

	result = call(t, searchContactsHandler(a), map[string]any{"query": "alice"})
	if err := json.Unmarshal([]byte(resultText(result)), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.People) != 1 || out.People[0].Name != "Alice Smith" {
		t.Errorf("people: %+v", out.People)
	}
}

func TestReadConversation(t *testing.T) {
	a := testApp(t)

	t.Run("minimal", func(t *testing.T) {
		result := call(t, readConversationHandler(a), map[string]any{"identifier": "+15551234567"})
		text := resultText(result)
		if !contains(text, "👤 Alice Smith (3 msgs, 2 handles)") {
			t.Errorf("header missing: %s", text)
		}
		if !contains(text, "Mar 9, 12:00 PM Alice Smith: I really like this") {
			t.Errorf("expected newest line, got: %s", text)
		}
	})

	t.Run("exclude sent", func(t *testing.T) {
		result := call(t, readConversationHandler(a), map[string]any{"identifier": "Alice", "include_sent": false, "format": "full"})
		text := resultText(result)
		if contains(text, "sorry!") {
			t.Errorf("sent message included: %s", text)
		}
		if !contains(text, `"handles":2`) {
			t.Errorf("expected handle count, got: %s", text)
		}
	})

	t.Run("group", func(t *testing.T) {
		result := call(t, readConversationHandler(a), map[string]any{"identifier": "group:1"})
		text := resultText(result)
		if !contains(text, "📱 Weekend Trip (2 msgs)") || !contains(text, "You: me") || !contains(text, "bob: who's driving?") {
			t.Errorf("unexpected group output: %s", text)
		}
	})

	t.Run("not found", func(t *testing.T) {
		result := call(t, readConversationHandler(a), map[string]any{"identifier": "+19998887777"})
		if !result.IsError {
			t.Fatal("expected tool error")
		}
		if text := resultText(result); !contains(text, "+19998887777") || !strings.HasPrefix(text, "Error: ") {
			t.Errorf("got: %s", text)
		}
	})

	t.Run("missing identifier", func(t *testing.T) {
		result := call(t, readConversationHandler(a), map[string]any{})
		if !result.IsError {
			t.Fatal("expected tool error")
		}
	})
}

func TestStoreUnavailable(t *testing.T) {
	a := newApp(t, filepath.Join(t.TempDir(), "chat.db"), "")
	result := call(t, readConversationHandler(a), map[string]any{"identifier": "Alice"})
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !contains(resultText(result), "Full Disk Access") {
		t.Errorf("got: %s", resultText(result))
	}
}

func TestConversationStats(t *testing.T) {
	a := testApp(t)

	result := call(t, conversationStatsHandler(a), map[string]any{"identifier": "+15551234567"})
	var ind struct {
		Contact string `json:"contact"`
		Stats   struct {
			Total    int `json:"total_messages"`
			Sent     int `json:"sent_messages"`
			Received int `json:"received_messages"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(resultText(result)), &ind); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ind.Contact != "Alice Smith" || ind.Stats.Total != 3 || ind.Stats.Sent != 1 || ind.Stats.Received != 2 {
		t.Errorf("got %+v", ind)
	}

	result = call(t, conversationStatsHandler(a), map[string]any{"identifier": "group:1"})
	var grp struct {
		Group  string `json:"group"`
		Totals struct {
			Total int `json:"total_messages"`
		} `json:"totals"`
	}
	if err := json.Unmarshal([]byte(resultText(result)), &grp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if grp.Group != "Weekend Trip" || grp.Totals.Total != 2 {
		t.Errorf("got %+v", grp)
	}

	result = call(t, conversationStatsHandler(a), map[string]any{"identifier": "group:abc"})
	if !result.IsError {
		t.Errorf("expected tool error for malformed group, got: %s", resultText(result))
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	a := testApp(t)

	result := call(t, sentimentHandler(a), map[string]any{"identifier": "Alice", "group_by_date": false})
	var flat struct {
		KeywordsUsed string `json:"keywords_used"`
		Total        int    `json:"total_matches"`
		Messages     []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal([]byte(resultText(result)), &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if flat.Total != 1 || flat.Messages[0].Text != "I hate this" || flat.KeywordsUsed != "default_hostile" {
		t.Errorf("got %+v", flat)
	}

	result = call(t, sentimentHandler(a), map[string]any{"identifier": "Alice", "keywords": []any{"like"}})
	text := resultText(result)
	if !contains(text, `"analysis_type":"by_date"`) || !contains(text, `"keywords_searched":["like"]`) || !contains(text, "I really like this") {
		t.Errorf("got: %s", text)
	}
}

func TestCall(t *testing.T) {
	a := testApp(t)
	result, ok := Call(context.Background(), a, "search_contacts", map[string]any{"query": "bob"})
	if !ok || result.IsError {
		t.Fatalf("call: ok=%v result=%+v", ok, result)
	}
	if _, ok := Call(context.Background(), a, "send_message", nil); ok {
		t.Error("unknown tool reported as found")
	}
}

func TestReadConversationNonPositiveLimit(t *testing.T) {
	b := chatdbtest.New(t)
	h := b.Handle("+15551234567")
	for i := 0; i < 25; i++ {
		b.Text(h, false, testNow.Add(-time.Duration(i+1)*time.Hour), fmt.Sprintf("message %d", i))
	}
	a := newApp(t, b.Done(), "")

	for _, limit := range []any{0, -3.0} {
		result := call(t, readConversationHandler(a), map[string]any{
			"identifier": "+15551234567", "limit": limit, "format": "compact",
		})
		var out struct {
			Count int `json:"message_count"`
		}
		if err := json.Unmarshal([]byte(resultText(result)), &out); err != nil {
			t.Fatalf("unmarshal: %v\n%s", err, resultText(result))
		}
		if out.Count != 20 {
			t.Errorf("limit %v: got %d messages, want default 20", limit, out.Count)
		}
	}
}

func TestLimitArg(t *testing.T) {
	args := map[string]any{"zero": 0.0, "neg": -3.0, "ok": 7.0}
	tests := []struct {
		key  string
		want int
	}{
		{"zero", 15},
		{"neg", 15},
		{"ok", 7},
		{"missing", 15},
	}
	for _, tt := range tests {
		if got := limitArg(args, tt.key, 15); got != tt.want {
			t.Errorf("limitArg(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestStringSliceArg(t *testing.T) {
	args := map[string]any{"a": []any{"x", 3, "y"}, "b": []string{"z"}, "c": "nope"}
	if got := stringSliceArg(args, "a"); len(got) != 2 || got[1] != "y" {
		t.Errorf("a: %v", got)
	}
	if got := stringSliceArg(args, "b"); len(got) != 1 {
		t.Errorf("b: %v", got)
	}
	if got := stringSliceArg(args, "c"); got != nil {
		t.Errorf("c: %v", got)
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
