package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxghenis/imessage-mcp/internal/body"
	"github.com/maxghenis/imessage-mcp/internal/chatdb"
	"github.com/maxghenis/imessage-mcp/internal/config"
	"github.com/maxghenis/imessage-mcp/internal/contacts"
	"github.com/maxghenis/imessage-mcp/internal/conversation"
)

// App holds the process-wide state shared by every tool invocation. Store
// connections are not part of it: each invocation opens its own.
type App struct {
	Config    *config.Config
	Contacts  *contacts.Resolver
	Extractor body.Extractor
	Location  *time.Location
	Logger    zerolog.Logger
	Now       func() time.Time
}

func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &App{
		Config:    cfg,
		Contacts:  contacts.NewResolver(cfg.Data.ContactsDB, contacts.NewNameCache(), logger),
		Extractor: body.Default,
		Location:  loc,
		Logger:    logger,
		Now:       time.Now,
	}, nil
}

// OpenStore opens the Messages database read-only. An unavailable store is
// reported with instructions for granting access.
func (a *App) OpenStore(ctx context.Context) (*chatdb.Store, error) {
	store, err := chatdb.Open(ctx, a.Config.Data.ChatDB)
	if errors.Is(err, chatdb.ErrUnavailable) {
		return nil, fmt.Errorf("%w. Grant Full Disk Access to the app running imessage-mcp "+
			"(System Settings > Privacy & Security > Full Disk Access) and check the path %s",
			err, a.Config.Data.ChatDB)
	}
	return store, err
}

// WithReader runs fn against a fresh store connection and contacts session,
// and releases both when fn returns.
func (a *App) WithReader(ctx context.Context, fn func(*conversation.Reader) error) error {
	store, err := a.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	session := a.Contacts.Session()
	defer session.Close()

	return fn(&conversation.Reader{
		Messages:  store,
		Directory: session,
		Extractor: a.Extractor,
		Now:       a.Now,
		Logger:    a.Logger,
	})
}

// Status describes whether the two stores can be read.
type Status struct {
	ChatDB            string `json:"chat_db"`
	ChatDBReadable    bool   `json:"chat_db_readable"`
	ChatDBError       string `json:"chat_db_error,omitempty"`
	ContactsDB        string `json:"contacts_db"`
	ContactsAvailable bool   `json:"contacts_available"`
	CachedNames       int    `json:"cached_names"`
}

func (a *App) Status(ctx context.Context) Status {
	st := Status{
		ChatDB:      a.Config.Data.ChatDB,
		ContactsDB:  a.Config.Data.ContactsDB,
		CachedNames: a.Contacts.Cache().Len(),
	}
	if store, err := a.OpenStore(ctx); err != nil {
		st.ChatDBError = err.Error()
	} else {
		st.ChatDBReadable = true
		store.Close()
	}
	session := a.Contacts.Session()
	defer session.Close()
	st.ContactsAvailable = session.Available(ctx)
	return st
}
