package conversation

import (
	"context"
	"fmt"

	"github.com/maxghenis/imessage-mcp/internal/chatdb"
	"github.com/maxghenis/imessage-mcp/internal/contacts"
)

const contactHandleLimit = 20

// ContactMatches is the result of a contact search: raw Messages handles
// whose endpoint contains the query, and address book people whose name does.
type ContactMatches struct {
	Handles []chatdb.Handle   `json:"handles"`
	Persons []contacts.Person `json:"persons"`
}

func (r *Reader) SearchContacts(ctx context.Context, query string) (*ContactMatches, error) {
	handles, err := r.Messages.ListHandles(ctx, query, contactHandleLimit)
	if err != nil {
		return nil, fmt.Errorf("list handles: %w", err)
	}
	m := &ContactMatches{
		Handles: handles,
		Persons: r.Directory.FindPersons(ctx, query),
	}
	if m.Handles == nil {
		m.Handles = []chatdb.Handle{}
	}
	if m.Persons == nil {
		m.Persons = []contacts.Person{}
	}
	return m, nil
}
