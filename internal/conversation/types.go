// Package conversation turns loose identifiers into Messages conversations:
// it resolves handles, runs time-bounded reads, and computes stats and
// keyword reports over them.
package conversation

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

var (
	// ErrNotFound means an identifier resolved to no handles.
	ErrNotFound = errors.New("contact not found")
	// ErrInvalidIdentifier means a group identifier did not carry a numeric key.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// GroupPrefix marks an identifier that names a group chat by ROWID.
const GroupPrefix = "group:"

// Placeholder is shown for a message whose text cannot be recovered.
const Placeholder = "[No text]"

// SentMarker prefixes local-user messages in individual conversations.
const SentMarker = "> "

// You labels messages sent by the local user.
const You = "You"

// DateLayout is the layout of Message.Date.
const DateLayout = "2006-01-02 15:04:05"

type Kind string

const (
	Individual Kind = "individual"
	Group      Kind = "group"
)

// Message is a display copy of one stored message.
type Message struct {
	Date   string    `json:"date"`
	Text   string    `json:"text"`
	Sender string    `json:"sender,omitempty"`
	Time   time.Time `json:"-"`
	FromMe bool      `json:"-"`
}

// Conversation is either the messages across all handles of one contact or
// the messages of one group chat, newest first.
type Conversation struct {
	Kind       Kind      `json:"type"`
	Name       string    `json:"name"`
	Identifier string    `json:"identifier"`
	ChatID     int64     `json:"id,omitempty"`
	Handles    int       `json:"handles,omitempty"`
	Messages   []Message `json:"messages"`
}

// KeySet is an ordered set of handle ROWIDs. The zero value is empty.
type KeySet struct {
	keys []int64
}

func NewKeySet(keys ...int64) KeySet {
	return KeySet{keys: lo.Uniq(keys)}
}

// Add returns a set holding k's keys followed by any new ones.
func (k KeySet) Add(keys ...int64) KeySet {
	return KeySet{keys: lo.Uniq(append(slices.Clone(k.keys), keys...))}
}

func (k KeySet) Len() int {
	return len(k.keys)
}

// Keys returns a copy of the keys in insertion order.
func (k KeySet) Keys() []int64 {
	return slices.Clone(k.keys)
}

// Target is a parsed identifier.
type Target struct {
	Group      bool
	ChatID     int64
	Identifier string
}

// ParseTarget splits "group:<ROWID>" identifiers from endpoint/name ones.
func ParseTarget(identifier string) (Target, error) {
	rest, ok := strings.CutPrefix(identifier, GroupPrefix)
	if !ok {
		return Target{Identifier: identifier}, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q is not %s<number>", ErrInvalidIdentifier, identifier, GroupPrefix)
	}
	return Target{Group: true, ChatID: id, Identifier: identifier}, nil
}

// GroupIdentifier formats a chat ROWID as an identifier.
func GroupIdentifier(chatID int64) string {
	return GroupPrefix + strconv.FormatInt(chatID, 10)
}

// GroupName is the display name of a group, falling back to "Group <id>".
func GroupName(displayName string, chatID int64) string {
	if displayName != "" {
		return displayName
	}
	return fmt.Sprintf("Group %d", chatID)
}
