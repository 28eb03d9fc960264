package chatdb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// MessageQuery selects messages either for a set of handle keys (an
// individual conversation) or for one chat (a group conversation).
type MessageQuery struct {
	Group      bool
	ChatID     int64
	HandleKeys []int64

	// After is an exclusive lower bound on message.date (see Threshold).
	After int64
	// ExcludeSent drops messages sent by the local user.
	ExcludeSent bool
	// RequireContent keeps only rows with non-empty text or an alternate body.
	RequireContent bool
	// OldestFirst orders by date ascending; the default is newest first.
	OldestFirst bool
}

func (q MessageQuery) builder() sq.SelectBuilder {
	b := sq.Select(
		"m.ROWID",
		"COALESCE(m.date, 0)",
		"COALESCE(m.text, '')",
		"m.attributedBody",
		"COALESCE(m.is_from_me, 0)",
		"COALESCE(m.service, '')",
		"COALESCE(h.id, '')",
	)
	if q.Group {
		b = b.From("chat_message_join cmj").
			Join("message m ON cmj.message_id = m.ROWID").
			LeftJoin("handle h ON m.handle_id = h.ROWID").
			Where(sq.Eq{"cmj.chat_id": q.ChatID})
	} else {
		b = b.From("message m").
			LeftJoin("handle h ON m.handle_id = h.ROWID").
			Where(sq.Eq{"m.handle_id": q.HandleKeys})
	}
	b = b.Where(sq.Gt{"m.date": q.After})
	if q.ExcludeSent {
		b = b.Where(sq.Eq{"m.is_from_me": 0})
	}
	if q.RequireContent {
		b = b.Where(sq.Or{
			sq.NotEq{"m.text": ""},
			sq.NotEq{"m.attributedBody": nil},
		})
	}
	if q.OldestFirst {
		return b.OrderBy("m.date ASC", "m.ROWID ASC")
	}
	return b.OrderBy("m.date DESC", "m.ROWID DESC")
}

// EachMessage streams the rows selected by q to fn until fn returns false or
// the rows are exhausted. Callers apply their own cap so that rows they
// discard do not count against it.
func (s *Store) EachMessage(ctx context.Context, q MessageQuery, fn func(MessageRow) bool) error {
	query, args, err := q.builder().ToSql()
	if err != nil {
		return fmt.Errorf("build message query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m MessageRow
		var fromMe int64
		if err := rows.Scan(&m.RowID, &m.Date, &m.Text, &m.AttributedBody, &fromMe, &m.Service, &m.Sender); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		m.IsFromMe = fromMe == 1
		if !fn(m) {
			break
		}
	}
	return rows.Err()
}
