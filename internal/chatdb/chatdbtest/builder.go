// Package chatdbtest builds chat.db-shaped SQLite files for tests.
package chatdbtest

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE handle (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	country TEXT,
	service TEXT NOT NULL DEFAULT 'iMessage'
);
CREATE TABLE chat (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_identifier TEXT,
	service_name TEXT DEFAULT 'iMessage',
	display_name TEXT
);
CREATE TABLE message (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT,
	attributedBody BLOB,
	handle_id INTEGER DEFAULT 0,
	service TEXT DEFAULT 'iMessage',
	date INTEGER,
	is_from_me INTEGER DEFAULT 0
);
CREATE TABLE chat_message_join (
	chat_id INTEGER REFERENCES chat (ROWID),
	message_id INTEGER REFERENCES message (ROWID),
	message_date INTEGER DEFAULT 0,
	PRIMARY KEY (chat_id, message_id)
);
CREATE TABLE chat_handle_join (
	chat_id INTEGER REFERENCES chat (ROWID),
	handle_id INTEGER REFERENCES handle (ROWID),
	UNIQUE (chat_id, handle_id)
);
`

const appleEpochOffset = 978307200

// Builder writes fixture rows into a fresh chat.db file.
type Builder struct {
	t    testing.TB
	db   *sql.DB
	Path string
}

// Message describes one fixture message. Handle is the sender/recipient
// handle ROWID (0 for none); At is the message time.
type Message struct {
	Text           *string
	AttributedBody []byte
	Handle         int64
	FromMe         bool
	At             time.Time
	Service        string
}

// New creates an empty chat.db in a temp dir. The file is closed for writing
// automatically at test cleanup; call Done to close it earlier so that the
// code under test opens a settled file.
func New(t testing.TB) *Builder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("create fixture schema: %v", err)
	}
	b := &Builder{t: t, db: db, Path: path}
	t.Cleanup(func() { b.db.Close() })
	return b
}

// Handle inserts a handle row and returns its ROWID.
func (b *Builder) Handle(id string) int64 {
	b.t.Helper()
	res, err := b.db.Exec(`INSERT INTO handle (id, service) VALUES (?, 'iMessage')`, id)
	if err != nil {
		b.t.Fatalf("insert handle %q: %v", id, err)
	}
	rowID, _ := res.LastInsertId()
	return rowID
}

// Chat inserts a group chat row and returns its ROWID.
func (b *Builder) Chat(identifier, displayName string) int64 {
	b.t.Helper()
	var name any
	if displayName != "" {
		name = displayName
	}
	res, err := b.db.Exec(`INSERT INTO chat (chat_identifier, display_name) VALUES (?, ?)`, identifier, name)
	if err != nil {
		b.t.Fatalf("insert chat %q: %v", identifier, err)
	}
	rowID, _ := res.LastInsertId()
	return rowID
}

// Message inserts a message row and returns its ROWID.
func (b *Builder) Message(m Message) int64 {
	b.t.Helper()
	var text any
	if m.Text != nil {
		text = *m.Text
	}
	var body any
	if m.AttributedBody != nil {
		body = m.AttributedBody
	}
	service := m.Service
	if service == "" {
		service = "iMessage"
	}
	fromMe := 0
	if m.FromMe {
		fromMe = 1
	}
	res, err := b.db.Exec(`INSERT INTO message (text, attributedBody, handle_id, service, date, is_from_me) VALUES (?, ?, ?, ?, ?, ?)`,
		text, body, m.Handle, service, AppleDate(m.At), fromMe)
	if err != nil {
		b.t.Fatalf("insert message: %v", err)
	}
	rowID, _ := res.LastInsertId()
	return rowID
}

// Text inserts a plain text message.
func (b *Builder) Text(handle int64, fromMe bool, at time.Time, text string) int64 {
	b.t.Helper()
	return b.Message(Message{Text: &text, Handle: handle, FromMe: fromMe, At: at})
}

// InChat links a message into a group chat.
func (b *Builder) InChat(chatID, messageID int64) {
	b.t.Helper()
	if _, err := b.db.Exec(`INSERT INTO chat_message_join (chat_id, message_id) VALUES (?, ?)`, chatID, messageID); err != nil {
		b.t.Fatalf("link message %d to chat %d: %v", messageID, chatID, err)
	}
}

// GroupText inserts a text message and links it into chatID.
func (b *Builder) GroupText(chatID, handle int64, fromMe bool, at time.Time, text string) int64 {
	b.t.Helper()
	id := b.Text(handle, fromMe, at, text)
	b.InChat(chatID, id)
	return id
}

// Done closes the writer connection and returns the file path.
func (b *Builder) Done() string {
	b.t.Helper()
	if err := b.db.Close(); err != nil {
		b.t.Fatalf("close fixture db: %v", err)
	}
	return b.Path
}

// AppleDate converts t to a message.date value.
func AppleDate(t time.Time) int64 {
	return (t.Unix()-appleEpochOffset)*int64(time.Second) + int64(t.Nanosecond())
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }
