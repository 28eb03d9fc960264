// Package contactstest builds AddressBook-shaped SQLite files for tests.
package contactstest

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE ZABCDRECORD (
	Z_PK INTEGER PRIMARY KEY,
	ZFIRSTNAME VARCHAR,
	ZLASTNAME VARCHAR,
	ZORGANIZATION VARCHAR
);
CREATE TABLE ZABCDPHONENUMBER (
	Z_PK INTEGER PRIMARY KEY,
	ZOWNER INTEGER,
	ZFULLNUMBER VARCHAR,
	ZLABEL VARCHAR
);
CREATE TABLE ZABCDEMAILADDRESS (
	Z_PK INTEGER PRIMARY KEY,
	ZOWNER INTEGER,
	ZADDRESS VARCHAR,
	ZLABEL VARCHAR
);
`

// Person is one fixture record.
type Person struct {
	First  string
	Last   string
	Phones []string
	Emails []string
}

type Builder struct {
	t    testing.TB
	db   *sql.DB
	Path string
}

func New(t testing.TB) *Builder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AddressBook-v22.abcddb")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture contacts db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("create fixture contacts schema: %v", err)
	}
	b := &Builder{t: t, db: db, Path: path}
	t.Cleanup(func() { b.db.Close() })
	return b
}

// Add inserts a record with its phone numbers and emails.
func (b *Builder) Add(p Person) int64 {
	b.t.Helper()
	var first, last any
	if p.First != "" {
		first = p.First
	}
	if p.Last != "" {
		last = p.Last
	}
	res, err := b.db.Exec(`INSERT INTO ZABCDRECORD (ZFIRSTNAME, ZLASTNAME) VALUES (?, ?)`, first, last)
	if err != nil {
		b.t.Fatalf("insert record: %v", err)
	}
	pk, _ := res.LastInsertId()
	for _, phone := range p.Phones {
		if _, err := b.db.Exec(`INSERT INTO ZABCDPHONENUMBER (ZOWNER, ZFULLNUMBER) VALUES (?, ?)`, pk, phone); err != nil {
			b.t.Fatalf("insert phone: %v", err)
		}
	}
	for _, email := range p.Emails {
		if _, err := b.db.Exec(`INSERT INTO ZABCDEMAILADDRESS (ZOWNER, ZADDRESS) VALUES (?, ?)`, pk, email); err != nil {
			b.t.Fatalf("insert email: %v", err)
		}
	}
	return pk
}

// Done closes the writer connection and returns the file path.
func (b *Builder) Done() string {
	b.t.Helper()
	if err := b.db.Close(); err != nil {
		b.t.Fatalf("close fixture contacts db: %v", err)
	}
	return b.Path
}
