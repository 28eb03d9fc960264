// Package chatdb reads the macOS Messages database (chat.db) read-only.
package chatdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// ErrUnavailable is returned when chat.db cannot be opened or read.
var ErrUnavailable = errors.New("message database unavailable")

type Store struct {
	db   *sql.DB
	path string
}

type Handle struct {
	RowID   int64  `json:"rowid"`
	ID      string `json:"id"`
	Service string `json:"service"`
	Country string `json:"country,omitempty"`
}

type Chat struct {
	RowID       int64
	Identifier  string
	DisplayName string
	ServiceName string
}

// MessageRow is one row of message, joined with the sender's handle.
type MessageRow struct {
	RowID          int64
	Date           int64
	Text           string
	AttributedBody []byte
	IsFromMe       bool
	Service        string
	Sender         string
}

// Open opens chat.db at path in read-only mode. The caller must Close it.
func Open(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}
	// modernc.org/sqlite requires single connection to avoid "malformed" errors
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// Permission problems on macOS only show up on the first real read.
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Digits returns only the decimal digits of s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// NationalNumber returns the 10-digit national form of an 11-digit number
// carrying the leading country digit 1, or "" otherwise.
func NationalNumber(digits string) string {
	if len(digits) == 11 && digits[0] == '1' {
		return digits[1:]
	}
	return ""
}

// endpointPatterns builds the loose LIKE match used for endpoint lookups:
// the raw term, its digits, its digits with a leading +, and its national
// form. Digit patterns are skipped for terms without digits so that they
// never degrade into a match-everything "%%".
func endpointPatterns(column, term string) sq.Or {
	ors := sq.Or{Contains(column, term)}
	digits := Digits(term)
	if digits == "" {
		return ors
	}
	ors = append(ors,
		Contains(column, digits),
		Contains(column, "+"+digits),
	)
	if national := NationalNumber(digits); national != "" {
		ors = append(ors, Contains(column, national))
	}
	return ors
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains matches rows where column contains term literally; LIKE
// wildcards in term are escaped.
func Contains(column, term string) sq.Sqlizer {
	return sq.Expr(column+` LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(term)+"%")
}
