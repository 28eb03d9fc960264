package contacts

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// NameCache memoizes endpoint display names for the life of the process.
// Entries are never evicted or invalidated.
type NameCache struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewNameCache() *NameCache {
	return &NameCache{names: make(map[string]string)}
}

func (c *NameCache) Get(endpoint string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[endpoint]
	return name, ok
}

// Put stores name unless endpoint already has one, and returns the stored
// value so concurrent resolvers agree.
func (c *NameCache) Put(endpoint, name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.names[endpoint]; ok {
		return existing
	}
	c.names[endpoint] = name
	return name
}

func (c *NameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

// Resolver is the process-wide entry point for contact resolution. It owns
// the name cache; the database itself is opened per Session.
type Resolver struct {
	path   string
	cache  *NameCache
	logger zerolog.Logger
	notice sync.Once
}

func NewResolver(path string, cache *NameCache, logger zerolog.Logger) *Resolver {
	if cache == nil {
		cache = NewNameCache()
	}
	return &Resolver{
		path:   path,
		cache:  cache,
		logger: logger.With().Str("component", "contacts").Logger(),
	}
}

func (r *Resolver) Cache() *NameCache {
	return r.cache
}

// Session starts a request-scoped view of the contacts database. The
// database is opened on first use; Close releases it.
func (r *Resolver) Session() *Session {
	return &Session{r: r}
}

func (r *Resolver) reportUnavailable(err error) {
	r.notice.Do(func() {
		r.logger.Warn().Err(err).Str("path", r.path).
			Msg("Contacts database not available, names will fall back to phone numbers")
	})
}

type availability int

const (
	availabilityPending availability = iota
	availabilityOpen
	availabilityUnavailable
)

// Session resolves names against one lazily opened connection.
type Session struct {
	r     *Resolver
	state availability
	book  *Book
}

func (s *Session) open(ctx context.Context) *Book {
	switch s.state {
	case availabilityOpen:
		return s.book
	case availabilityUnavailable:
		return nil
	}
	book, err := OpenBook(ctx, s.r.path)
	if err != nil {
		s.state = availabilityUnavailable
		s.r.reportUnavailable(err)
		return nil
	}
	s.state = availabilityOpen
	s.book = book
	return book
}

// Available reports whether the contacts database could be opened.
func (s *Session) Available(ctx context.Context) bool {
	return s.open(ctx) != nil
}

// DisplayName returns the contact name for endpoint, or a formatted fallback.
// The first answer for an endpoint is cached and returned from then on.
func (s *Session) DisplayName(ctx context.Context, endpoint string) string {
	if endpoint == "" {
		return FormatEndpoint(endpoint)
	}
	if name, ok := s.r.cache.Get(endpoint); ok {
		return name
	}
	name := ""
	if book := s.open(ctx); book != nil {
		found, err := book.LookupName(ctx, endpoint)
		if err != nil {
			s.r.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("Contact lookup failed")
		}
		name = found
	}
	if name == "" {
		name = FormatEndpoint(endpoint)
	}
	return s.r.cache.Put(endpoint, name)
}

// FindPersons searches contacts by name. Any failure yields an empty list.
func (s *Session) FindPersons(ctx context.Context, pattern string) []Person {
	book := s.open(ctx)
	if book == nil {
		return nil
	}
	persons, err := book.FindPersons(ctx, pattern)
	if err != nil {
		s.r.logger.Debug().Err(err).Str("pattern", pattern).Msg("Contact search failed")
		return nil
	}
	return persons
}

func (s *Session) Close() error {
	if s.book == nil {
		return nil
	}
	err := s.book.Close()
	s.book = nil
	s.state = availabilityPending
	return err
}

// IsUnavailable reports whether err means the contacts database is missing.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
