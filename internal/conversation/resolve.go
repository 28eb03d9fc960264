package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxghenis/imessage-mcp/internal/chatdb"
	"github.com/maxghenis/imessage-mcp/internal/contacts"
)

// HandleSearcher finds handle rows by loose endpoint match.
type HandleSearcher interface {
	SearchHandles(ctx context.Context, term string, limit int) ([]chatdb.Handle, error)
}

// PersonFinder finds address book entries by name.
type PersonFinder interface {
	FindPersons(ctx context.Context, pattern string) []contacts.Person
}

// looksLikeEndpoint reports whether identifier could be a phone number or
// email rather than a name.
func looksLikeEndpoint(identifier string) bool {
	return strings.ContainsAny(identifier, "@+-()0123456789")
}

// ResolveHandleKeys returns every handle ROWID that identifier denotes.
// Names are resolved through the address book first; if that yields nothing,
// or identifier looks like an endpoint, identifier is matched against handles
// directly. A person may have several handle rows for one number (national
// and international forms); all of them are returned.
func ResolveHandleKeys(ctx context.Context, handles HandleSearcher, people PersonFinder, identifier string) (KeySet, error) {
	var keys KeySet

	if !looksLikeEndpoint(identifier) {
		for _, p := range people.FindPersons(ctx, identifier) {
			for _, endpoint := range []string{p.Phone, p.Email} {
				if endpoint == "" {
					continue
				}
				found, err := lookupKeys(ctx, handles, endpoint)
				if err != nil {
					return KeySet{}, err
				}
				keys = keys.Add(found...)
			}
		}
	}

	if keys.Len() == 0 {
		found, err := lookupKeys(ctx, handles, identifier)
		if err != nil {
			return KeySet{}, err
		}
		keys = keys.Add(found...)
	}

	if keys.Len() == 0 {
		return KeySet{}, fmt.Errorf("%w: %s", ErrNotFound, identifier)
	}
	return keys, nil
}

func lookupKeys(ctx context.Context, handles HandleSearcher, term string) ([]int64, error) {
	hs, err := handles.SearchHandles(ctx, term, 0)
	if err != nil {
		return nil, fmt.Errorf("search handles for %q: %w", term, err)
	}
	keys := make([]int64, len(hs))
	for i, h := range hs {
		keys[i] = h.RowID
	}
	return keys, nil
}
