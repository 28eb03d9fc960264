// Package contacts resolves Messages endpoints to names using the macOS
// AddressBook database, and names back to endpoints.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/maxghenis/imessage-mcp/internal/chatdb"
)

// ErrUnavailable is returned when the AddressBook database is absent or
// unreadable. It is never fatal: callers fall back to formatted endpoints.
var ErrUnavailable = errors.New("contacts database unavailable")

// MaxPersons caps the rows considered by a name search.
const MaxPersons = 10

// numberColumn strips the punctuation AddressBook keeps in ZFULLNUMBER so
// digit patterns can match formatted numbers.
const numberColumn = "REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(p.ZFULLNUMBER, ' ', ''), '(', ''), ')', ''), '-', ''), '.', '')"

// Person is an AddressBook entry flattened to one phone and one email.
type Person struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Book is an open, read-only AddressBook database.
type Book struct {
	db *sql.DB
}

// OpenBook opens the AddressBook database at path read-only.
func OpenBook(ctx context.Context, path string) (*Book, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path configured", ErrUnavailable)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Book{db: db}, nil
}

func (b *Book) Close() error {
	return b.db.Close()
}

// LookupName returns the "first last" name of the first record owning an
// endpoint that loosely matches the given one, or "" if none does.
func (b *Book) LookupName(ctx context.Context, endpoint string) (string, error) {
	q := sq.Select("COALESCE(r.ZFIRSTNAME, '')", "COALESCE(r.ZLASTNAME, '')").
		From("ZABCDRECORD r").
		Limit(1)
	if strings.Contains(endpoint, "@") {
		q = q.Join("ZABCDEMAILADDRESS e ON r.Z_PK = e.ZOWNER").
			Where(sq.Expr("LOWER(e.ZADDRESS) = LOWER(?)", endpoint))
	} else {
		q = q.Join("ZABCDPHONENUMBER p ON r.Z_PK = p.ZOWNER").
			Where(phonePatterns(endpoint))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build name query: %w", err)
	}
	var first, last string
	err = b.db.QueryRowContext(ctx, query, args...).Scan(&first, &last)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", endpoint, err)
	}
	return fullName(first, last), nil
}

func phonePatterns(endpoint string) sq.Or {
	ors := sq.Or{chatdb.Contains("p.ZFULLNUMBER", endpoint)}
	digits := chatdb.Digits(endpoint)
	if digits == "" {
		return ors
	}
	ors = append(ors,
		chatdb.Contains(numberColumn, digits),
		chatdb.Contains(numberColumn, "+"+digits),
	)
	if national := chatdb.NationalNumber(digits); national != "" {
		ors = append(ors, chatdb.Contains(numberColumn, national))
	}
	return ors
}

// FindPersons returns people whose first, last or full name contains
// pattern. At most MaxPersons rows are considered; rows with neither a phone
// number nor an email address are dropped.
func (b *Book) FindPersons(ctx context.Context, pattern string) ([]Person, error) {
	query, args, err := sq.Select(
		"COALESCE(r.ZFIRSTNAME, '')",
		"COALESCE(r.ZLASTNAME, '')",
		"COALESCE(p.ZFULLNUMBER, '')",
		"COALESCE(e.ZADDRESS, '')",
	).
		From("ZABCDRECORD r").
		LeftJoin("ZABCDPHONENUMBER p ON r.Z_PK = p.ZOWNER").
		LeftJoin("ZABCDEMAILADDRESS e ON r.Z_PK = e.ZOWNER").
		Where(sq.Or{
			chatdb.Contains("r.ZFIRSTNAME", pattern),
			chatdb.Contains("r.ZLASTNAME", pattern),
			chatdb.Contains("(COALESCE(r.ZFIRSTNAME, '') || ' ' || COALESCE(r.ZLASTNAME, ''))", pattern),
		}).
		OrderBy("r.Z_PK").
		Limit(MaxPersons).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build person query: %w", err)
	}
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find persons: %w", err)
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var first, last, phone, email string
		if err := rows.Scan(&first, &last, &phone, &email); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		if phone == "" && email == "" {
			continue
		}
		out = append(out, Person{Name: fullName(first, last), Phone: phone, Email: email})
	}
	return out, rows.Err()
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
