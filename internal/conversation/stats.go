package conversation

import (
	"context"
	"sort"

	"github.com/maxghenis/imessage-mcp/internal/chatdb"
)

// noParticipant is reported as most active when a group has no messages in
// the window.
const noParticipant = "None"

// MessageCounts summarizes an individual conversation. First and Last are
// nil when the window holds no messages.
type MessageCounts struct {
	TotalMessages    int     `json:"total_messages"`
	ReceivedMessages int     `json:"received_messages"`
	SentMessages     int     `json:"sent_messages"`
	FirstMessage     *string `json:"first_message"`
	LastMessage      *string `json:"last_message"`
}

type IndividualStats struct {
	Contact    string        `json:"contact"`
	Type       Kind          `json:"type"`
	Handles    int           `json:"handles"`
	PeriodDays int           `json:"period_days"`
	Stats      MessageCounts `json:"stats"`
}

type ParticipantStats struct {
	Participant  string `json:"participant"`
	Messages     int    `json:"messages"`
	SentByYou    int    `json:"sent_by_you"`
	FirstMessage string `json:"first_message"`
	LastMessage  string `json:"last_message"`
}

type GroupTotals struct {
	TotalMessages     int    `json:"total_messages"`
	TotalParticipants int    `json:"total_participants"`
	MostActive        string `json:"most_active"`
}

type GroupStats struct {
	Group        string             `json:"group"`
	Type         Kind               `json:"type"`
	PeriodDays   int                `json:"period_days"`
	Participants []ParticipantStats `json:"participants"`
	Totals       GroupTotals        `json:"totals"`
}

// Stats returns *IndividualStats or *GroupStats depending on the identifier.
// Every message in the window counts, whether or not it has text.
func (r *Reader) Stats(ctx context.Context, identifier string, daysBack int) (any, error) {
	target, err := ParseTarget(identifier)
	if err != nil {
		return nil, err
	}
	if target.Group {
		return r.GroupStats(ctx, target.ChatID, daysBack)
	}
	return r.IndividualStats(ctx, identifier, daysBack)
}

func (r *Reader) IndividualStats(ctx context.Context, identifier string, daysBack int) (*IndividualStats, error) {
	keys, err := ResolveHandleKeys(ctx, r.Messages, r.Directory, identifier)
	if err != nil {
		return nil, err
	}

	var counts MessageCounts
	var first, last int64
	err = r.Messages.EachMessage(ctx, chatdb.MessageQuery{
		HandleKeys:  keys.Keys(),
		After:       r.threshold(daysBack),
		OldestFirst: true,
	}, func(row chatdb.MessageRow) bool {
		if counts.TotalMessages == 0 {
			first = row.Date
		}
		last = row.Date
		counts.TotalMessages++
		if row.IsFromMe {
			counts.SentMessages++
		} else {
			counts.ReceivedMessages++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if counts.TotalMessages > 0 {
		f, l := formatDate(first), formatDate(last)
		counts.FirstMessage, counts.LastMessage = &f, &l
	}

	return &IndividualStats{
		Contact:    r.Directory.DisplayName(ctx, identifier),
		Type:       Individual,
		Handles:    keys.Len(),
		PeriodDays: daysBack,
		Stats:      counts,
	}, nil
}

// GroupStats ranks group participants by message count. Participants with
// equal counts keep the order in which they first spoke.
func (r *Reader) GroupStats(ctx context.Context, chatID int64, daysBack int) (*GroupStats, error) {
	chat, err := r.Messages.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	name := GroupName("", chatID)
	if chat != nil {
		name = GroupName(chat.DisplayName, chatID)
	}

	type tally struct {
		sender      string
		fromMe      bool
		count       int
		first, last int64
	}
	var order []*tally
	bySender := make(map[string]*tally)
	err = r.Messages.EachMessage(ctx, chatdb.MessageQuery{
		Group:       true,
		ChatID:      chatID,
		After:       r.threshold(daysBack),
		OldestFirst: true,
	}, func(row chatdb.MessageRow) bool {
		key := "h:" + row.Sender
		if row.IsFromMe {
			key = "me"
		}
		t, ok := bySender[key]
		if !ok {
			t = &tally{sender: row.Sender, fromMe: row.IsFromMe, first: row.Date}
			bySender[key] = t
			order = append(order, t)
		}
		t.count++
		t.last = row.Date
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].count > order[j].count })

	stats := &GroupStats{
		Group:        name,
		Type:         Group,
		PeriodDays:   daysBack,
		Participants: make([]ParticipantStats, 0, len(order)),
	}
	for _, t := range order {
		p := ParticipantStats{
			Messages:     t.count,
			FirstMessage: formatDate(t.first),
			LastMessage:  formatDate(t.last),
		}
		if t.fromMe {
			p.Participant = You
			p.SentByYou = t.count
		} else {
			p.Participant = r.Directory.DisplayName(ctx, t.sender)
		}
		stats.Participants = append(stats.Participants, p)
		stats.Totals.TotalMessages += t.count
	}
	stats.Totals.TotalParticipants = len(stats.Participants)
	stats.Totals.MostActive = noParticipant
	if len(stats.Participants) > 0 {
		stats.Totals.MostActive = stats.Participants[0].Participant
	}
	return stats, nil
}

func formatDate(date int64) string {
	return chatdb.ToTime(date).Format(DateLayout)
}
