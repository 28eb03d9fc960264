package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/maxghenis/imessage-mcp/internal/body"
	"github.com/maxghenis/imessage-mcp/internal/chatdb"
	"github.com/maxghenis/imessage-mcp/internal/contacts"
)

// MessageSource is the read side of the Messages store.
type MessageSource interface {
	HandleSearcher
	ListHandles(ctx context.Context, query string, limit int) ([]chatdb.Handle, error)
	SearchChats(ctx context.Context, query string, limit int) ([]chatdb.Chat, error)
	GetChat(ctx context.Context, rowID int64) (*chatdb.Chat, error)
	EachMessage(ctx context.Context, q chatdb.MessageQuery, fn func(chatdb.MessageRow) bool) error
}

// Directory names endpoints and finds people by name.
type Directory interface {
	PersonFinder
	DisplayName(ctx context.Context, endpoint string) string
}

const (
	// searchTermLimit caps handle matches per search term.
	searchTermLimit = 10
	// searchChatLimit caps group chats matched by a search.
	searchChatLimit = 5
)

// Reader runs conversation queries against one store and directory.
type Reader struct {
	Messages  MessageSource
	Directory Directory
	Extractor body.Extractor
	Now       func() time.Time
	Logger    zerolog.Logger
}

// ReadOptions bounds a read.
type ReadOptions struct {
	DaysBack    int
	Limit       int
	ExcludeSent bool
}

// SearchOptions bounds a search.
type SearchOptions struct {
	DaysBack      int
	Limit         int
	IncludeGroups bool
}

func (r *Reader) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reader) extractor() body.Extractor {
	if r.Extractor != nil {
		return r.Extractor
	}
	return body.Default
}

func (r *Reader) threshold(daysBack int) int64 {
	return chatdb.Threshold(r.now(), daysBack)
}

// content is a row's own text, or the text recovered from its alternate
// body, or "" if neither is present.
func (r *Reader) content(row chatdb.MessageRow) string {
	if strings.TrimSpace(row.Text) != "" {
		return row.Text
	}
	if text, ok := r.extractor().Extract(row.AttributedBody); ok {
		return text
	}
	return ""
}

// Read dispatches on the identifier form.
func (r *Reader) Read(ctx context.Context, identifier string, opts ReadOptions) (*Conversation, error) {
	target, err := ParseTarget(identifier)
	if err != nil {
		return nil, err
	}
	if target.Group {
		return r.ReadGroup(ctx, target.ChatID, opts)
	}
	return r.ReadIndividual(ctx, identifier, opts)
}

// ReadIndividual returns the merged conversation across every handle of the
// contact identifier denotes.
func (r *Reader) ReadIndividual(ctx context.Context, identifier string, opts ReadOptions) (*Conversation, error) {
	keys, err := ResolveHandleKeys(ctx, r.Messages, r.Directory, identifier)
	if err != nil {
		return nil, err
	}
	msgs, err := r.collect(ctx, chatdb.MessageQuery{
		HandleKeys:     keys.Keys(),
		After:          r.threshold(opts.DaysBack),
		ExcludeSent:    opts.ExcludeSent,
		RequireContent: true,
	}, opts.Limit, false)
	if err != nil {
		return nil, err
	}
	return &Conversation{
		Kind:       Individual,
		Name:       r.Directory.DisplayName(ctx, identifier),
		Identifier: identifier,
		Handles:    keys.Len(),
		Messages:   msgs,
	}, nil
}

// ReadGroup returns the messages of one group chat. A chat that does not
// exist yields an empty conversation named after its ROWID.
func (r *Reader) ReadGroup(ctx context.Context, chatID int64, opts ReadOptions) (*Conversation, error) {
	chat, err := r.Messages.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	name := GroupName("", chatID)
	if chat != nil {
		name = GroupName(chat.DisplayName, chatID)
	}
	msgs, err := r.collect(ctx, chatdb.MessageQuery{
		Group:          true,
		ChatID:         chatID,
		After:          r.threshold(opts.DaysBack),
		ExcludeSent:    opts.ExcludeSent,
		RequireContent: true,
	}, opts.Limit, true)
	if err != nil {
		return nil, err
	}
	return &Conversation{
		Kind:       Group,
		Name:       name,
		Identifier: GroupIdentifier(chatID),
		ChatID:     chatID,
		Messages:   msgs,
	}, nil
}

// SearchAndRead finds every conversation matching query (contacts by name,
// handles by endpoint, and optionally group chats by name) and reads each
// one. Conversations with no messages in the window are omitted.
func (r *Reader) SearchAndRead(ctx context.Context, query string, opts SearchOptions) ([]Conversation, error) {
	terms := []string{query}
	for _, p := range r.Directory.FindPersons(ctx, query) {
		terms = append(terms, p.Phone, p.Email)
	}
	terms = lo.Uniq(lo.Compact(terms))

	type endpointKeys struct {
		endpoint string
		keys     KeySet
	}
	var groups []*endpointKeys
	byEndpoint := make(map[string]*endpointKeys)
	for _, term := range terms {
		handles, err := r.Messages.SearchHandles(ctx, term, searchTermLimit)
		if err != nil {
			return nil, fmt.Errorf("search handles for %q: %w", term, err)
		}
		for _, h := range handles {
			g, ok := byEndpoint[h.ID]
			if !ok {
				g = &endpointKeys{endpoint: h.ID}
				byEndpoint[h.ID] = g
				groups = append(groups, g)
			}
			g.keys = g.keys.Add(h.RowID)
		}
	}

	after := r.threshold(opts.DaysBack)
	var out []Conversation
	for _, g := range groups {
		r.Logger.Debug().Str("endpoint", g.endpoint).Int("handles", g.keys.Len()).Msg("Reading matched contact")
		msgs, err := r.collect(ctx, chatdb.MessageQuery{
			HandleKeys:     g.keys.Keys(),
			After:          after,
			RequireContent: true,
		}, opts.Limit, false)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		out = append(out, Conversation{
			Kind:       Individual,
			Name:       r.Directory.DisplayName(ctx, g.endpoint),
			Identifier: g.endpoint,
			Handles:    g.keys.Len(),
			Messages:   msgs,
		})
	}

	if !opts.IncludeGroups {
		return out, nil
	}
	chats, err := r.Messages.SearchChats(ctx, query, searchChatLimit)
	if err != nil {
		return nil, err
	}
	for _, chat := range chats {
		conv, err := r.ReadGroup(ctx, chat.RowID, ReadOptions{DaysBack: opts.DaysBack, Limit: opts.Limit})
		if err != nil {
			return nil, err
		}
		if len(conv.Messages) > 0 {
			out = append(out, *conv)
		}
	}
	return out, nil
}

// collect streams q and keeps up to limit displayable messages. A limit of
// zero means no limit.
func (r *Reader) collect(ctx context.Context, q chatdb.MessageQuery, limit int, group bool) ([]Message, error) {
	msgs := []Message{}
	err := r.Messages.EachMessage(ctx, q, func(row chatdb.MessageRow) bool {
		text := r.content(row)
		if text == "" {
			if row.Text == "" {
				return true
			}
			text = Placeholder
		}
		msgs = append(msgs, r.message(ctx, row, text, group))
		return limit <= 0 || len(msgs) < limit
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Reader) message(ctx context.Context, row chatdb.MessageRow, text string, group bool) Message {
	at := chatdb.ToTime(row.Date)
	m := Message{
		Date:   at.Format(DateLayout),
		Text:   text,
		Time:   at,
		FromMe: row.IsFromMe,
	}
	switch {
	case group && row.IsFromMe:
		m.Sender = You
	case group:
		m.Sender = r.Directory.DisplayName(ctx, row.Sender)
	case row.IsFromMe:
		m.Text = SentMarker + text
	}
	return m
}

// IsNotFound reports whether err means an identifier matched no handles.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

var _ Directory = (*contacts.Session)(nil)
var _ MessageSource = (*chatdb.Store)(nil)
