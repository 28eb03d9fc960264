package web

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/chatdb"
	"github.com/maxghenis/imessage-mcp/internal/conversation"
)

//go:embed static/*
var staticFS embed.FS

// APIHandler creates the HTTP handler with JSON API routes and static file serving.
// mcp, when non-nil, is mounted at /mcp/.
func APIHandler(a *app.App, logger zerolog.Logger, mcp http.Handler) http.Handler {
	logger = logger.With().Str("component", "web").Logger()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			httpError(w, "query parameter 'q' is required", 400)
			return
		}
		opts := conversation.SearchOptions{
			DaysBack:      queryInt(r, "days_back", 30),
			Limit:         queryLimit(r, "limit", 15),
			IncludeGroups: queryBool(r, "include_groups", true),
		}
		var convs []conversation.Conversation
		err := a.WithReader(r.Context(), func(rd *conversation.Reader) error {
			var err error
			convs, err = rd.SearchAndRead(r.Context(), q, opts)
			return err
		})
		if err != nil {
			domainError(w, logger, "search", err)
			return
		}
		if convs == nil {
			convs = []conversation.Conversation{}
		}
		writeJSON(w, convs)
	})

	mux.HandleFunc("/api/conversation", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("identifier")
		if id == "" {
			httpError(w, "query parameter 'identifier' is required", 400)
			return
		}
		opts := conversation.ReadOptions{
			DaysBack:    queryInt(r, "days_back", 60),
			Limit:       queryLimit(r, "limit", 20),
			ExcludeSent: !queryBool(r, "include_sent", true),
		}
		var conv *conversation.Conversation
		err := a.WithReader(r.Context(), func(rd *conversation.Reader) error {
			var err error
			conv, err = rd.Read(r.Context(), id, opts)
			return err
		})
		if err != nil {
			domainError(w, logger, "read conversation", err)
			return
		}
		writeJSON(w, conv)
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("identifier")
		if id == "" {
			httpError(w, "query parameter 'identifier' is required", 400)
			return
		}
		daysBack := queryInt(r, "days_back", 60)
		var stats any
		err := a.WithReader(r.Context(), func(rd *conversation.Reader) error {
			var err error
			stats, err = rd.Stats(r.Context(), id, daysBack)
			return err
		})
		if err != nil {
			domainError(w, logger, "stats", err)
			return
		}
		writeJSON(w, stats)
	})

	mux.HandleFunc("/api/sentiment", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("identifier")
		if id == "" {
			httpError(w, "query parameter 'identifier' is required", 400)
			return
		}
		opts := conversation.SentimentOptions{
			DaysBack:    queryInt(r, "days_back", 60),
			GroupByDate: queryBool(r, "group_by_date", true),
		}
		if kw := r.URL.Query().Get("keywords"); kw != "" {
			opts.Keywords = strings.Split(kw, ",")
		}
		var report *conversation.SentimentReport
		err := a.WithReader(r.Context(), func(rd *conversation.Reader) error {
			var err error
			report, err = rd.Sentiment(r.Context(), id, opts)
			return err
		})
		if err != nil {
			domainError(w, logger, "sentiment", err)
			return
		}
		writeJSON(w, report)
	})

	mux.HandleFunc("/api/contacts", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			httpError(w, "query parameter 'q' is required", 400)
			return
		}
		var matches *conversation.ContactMatches
		err := a.WithReader(r.Context(), func(rd *conversation.Reader) error {
			var err error
			matches, err = rd.SearchContacts(r.Context(), q)
			return err
		})
		if err != nil {
			domainError(w, logger, "search contacts", err)
			return
		}
		writeJSON(w, matches)
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, a.Status(r.Context()))
	})

	if mcp != nil {
		mux.Handle("/mcp/", mcp)
	}

	// Serve embedded static files at root
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create static sub-filesystem")
	}
	mux.Handle("/", http.FileServer(http.FS(staticContent)))

	return mux
}

// domainError maps conversation and store failures onto HTTP status codes.
func domainError(w http.ResponseWriter, logger zerolog.Logger, op string, err error) {
	code := 500
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		code = 404
	case errors.Is(err, conversation.ErrInvalidIdentifier):
		code = 400
	case errors.Is(err, chatdb.ErrUnavailable):
		code = 503
	}
	if code == 500 {
		logger.Error().Err(err).Str("op", op).Msg("API request failed")
	}
	httpError(w, op+": "+err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}

func queryLimit(r *http.Request, key string, defaultVal int) int {
	if n := queryInt(r, key, defaultVal); n > 0 {
		return n
	}
	return defaultVal
}

func queryBool(r *http.Request, key string, defaultVal bool) bool {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}
