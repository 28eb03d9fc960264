package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/maxghenis/imessage-mcp/internal/chatdb/chatdbtest"
)

func TestGroupStats(t *testing.T) {
	cb := chatdbtest.New(t)
	alice := cb.Handle("+15551234567")
	bob := cb.Handle("+15559876543")
	chat := cb.Chat("chat1", "Book Club")

	// Alice speaks first, then the local user, then Bob. Within the window
	// Alice sends 10 and the other two send 7 each.
	start := daysAgo(5, 0)
	at := func(i int) time.Time { return start.Add(time.Duration(i) * time.Minute) }
	n := 0
	for i := 0; i < 10; i++ {
		cb.GroupText(chat, alice, false, at(n), "a")
		n++
	}
	for i := 0; i < 7; i++ {
		cb.GroupText(chat, 0, true, at(n), "me")
		n++
	}
	for i := 0; i < 7; i++ {
		cb.GroupText(chat, bob, false, at(n), "b")
		n++
	}
	cb.GroupText(chat, bob, false, daysAgo(60, 9), "too old")
	r := newReader(t, cb.Done(), aliceBook(t))

	got, err := r.Stats(context.Background(), GroupIdentifier(chat), 30)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	stats, ok := got.(*GroupStats)
	if !ok {
		t.Fatalf("stats type: got %T, want *GroupStats", got)
	}

	type row struct {
		Participant string
		Messages    int
		SentByYou   int
	}
	var rows []row
	for _, p := range stats.Participants {
		rows = append(rows, row{p.Participant, p.Messages, p.SentByYou})
	}
	want := []row{
		{"Alice Smith", 10, 0},
		{"You", 7, 7},
		{"Bob Jones", 7, 0},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("participants mismatch (-want +got):\n%s", diff)
	}
	wantTotals := GroupTotals{TotalMessages: 24, TotalParticipants: 3, MostActive: "Alice Smith"}
	if diff := cmp.Diff(wantTotals, stats.Totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
	if stats.Group != "Book Club" || stats.PeriodDays != 30 {
		t.Errorf("header: got %q %d", stats.Group, stats.PeriodDays)
	}
	if first := stats.Participants[0].FirstMessage; first != "2026-03-05 00:00:00" {
		t.Errorf("first message: got %q", first)
	}
	if last := stats.Participants[0].LastMessage; last != "2026-03-05 00:09:00" {
		t.Errorf("last message: got %q", last)
	}
}

func TestGroupStats_EmptyWindow(t *testing.T) {
	cb := chatdbtest.New(t)
	bob := cb.Handle("+15559876543")
	chat := cb.Chat("chat1", "Quiet")
	cb.GroupText(chat, bob, false, daysAgo(90, 9), "long ago")
	r := newReader(t, cb.Done(), aliceBook(t))

	got, err := r.Stats(context.Background(), GroupIdentifier(chat), 30)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	stats := got.(*GroupStats)
	want := GroupTotals{MostActive: "None"}
	if diff := cmp.Diff(want, stats.Totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
	if len(stats.Participants) != 0 {
		t.Errorf("participants: got %+v", stats.Participants)
	}
}

func TestIndividualStats(t *testing.T) {
	cb := chatdbtest.New(t)
	intl := cb.Handle("+15551234567")
	national := cb.Handle("5551234567")
	cb.Text(intl, false, daysAgo(6, 9), "one")
	cb.Text(national, true, daysAgo(4, 9), "two")
	cb.Message(chatdbtest.Message{Handle: intl, At: daysAgo(3, 9)})
	cb.Text(national, false, daysAgo(2, 9), "four")
	cb.Text(intl, false, daysAgo(90, 9), "old")
	r := newReader(t, cb.Done(), aliceBook(t))
	ctx := context.Background()

	got, err := r.Stats(ctx, "Alice", 30)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	stats := got.(*IndividualStats)
	first, last := "2026-03-04 09:00:00", "2026-03-08 09:00:00"
	want := MessageCounts{
		TotalMessages:    4,
		ReceivedMessages: 3,
		SentMessages:     1,
		FirstMessage:     &first,
		LastMessage:      &last,
	}
	if diff := cmp.Diff(want, stats.Stats); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if stats.Handles != 2 || stats.Type != Individual {
		t.Errorf("header: handles %d type %q", stats.Handles, stats.Type)
	}

	t.Run("empty window", func(t *testing.T) {
		stats, err := r.IndividualStats(ctx, "+15551234567", 1)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.Stats.TotalMessages != 0 || stats.Stats.FirstMessage != nil || stats.Stats.LastMessage != nil {
			t.Errorf("got %+v, want zero counts and nil dates", stats.Stats)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := r.Stats(ctx, "Zelda", 30); !IsNotFound(err) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}
