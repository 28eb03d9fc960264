package chatdb

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// SearchHandles returns handle rows whose id loosely matches term. A limit
// of zero means no limit.
func (s *Store) SearchHandles(ctx context.Context, term string, limit int) ([]Handle, error) {
	q := sq.Select("ROWID", "COALESCE(id, '')", "COALESCE(service, '')", "COALESCE(country, '')").
		From("handle").
		Where(endpointPatterns("id", term)).
		OrderBy("ROWID")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryHandles(ctx, q)
}

// ListHandles returns handle rows whose id contains query, ordered by id.
// Used for the plain contact lookup.
func (s *Store) ListHandles(ctx context.Context, query string, limit int) ([]Handle, error) {
	q := sq.Select("ROWID", "COALESCE(id, '')", "COALESCE(service, '')", "COALESCE(country, '')").
		From("handle").
		Where(endpointPatterns("id", query)).
		OrderBy("id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryHandles(ctx, q)
}

func (s *Store) queryHandles(ctx context.Context, q sq.SelectBuilder) ([]Handle, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build handle query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query handles: %w", err)
	}
	defer rows.Close()

	var out []Handle
	for rows.Next() {
		var h Handle
		if err := rows.Scan(&h.RowID, &h.ID, &h.Service, &h.Country); err != nil {
			return nil, fmt.Errorf("scan handle: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SearchChats returns group chats whose display name or identifier contains
// query.
func (s *Store) SearchChats(ctx context.Context, query string, limit int) ([]Chat, error) {
	q := sq.Select("ROWID", "COALESCE(chat_identifier, '')", "COALESCE(display_name, '')", "COALESCE(service_name, '')").
		From("chat").
		Where(sq.Or{
			Contains("display_name", query),
			Contains("chat_identifier", query),
		}).
		OrderBy("ROWID")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build chat query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.RowID, &c.Identifier, &c.DisplayName, &c.ServiceName); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChat returns the chat with the given ROWID, or nil if none exists.
func (s *Store) GetChat(ctx context.Context, rowID int64) (*Chat, error) {
	query, args, err := sq.Select("ROWID", "COALESCE(chat_identifier, '')", "COALESCE(display_name, '')", "COALESCE(service_name, '')").
		From("chat").
		Where(sq.Eq{"ROWID": rowID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build chat query: %w", err)
	}
	var c Chat
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&c.RowID, &c.Identifier, &c.DisplayName, &c.ServiceName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %d: %w", rowID, err)
	}
	return &c, nil
}
