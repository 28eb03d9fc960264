package conversation

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/maxghenis/imessage-mcp/internal/chatdb"
)

// DefaultKeywords is the built-in hostile vocabulary.
var DefaultKeywords = []string{
	"fuck", "shit", "hate", "angry", "stupid", "idiot", "asshole", "bitch",
	"pissed", "disgusted", "shut up", "leave me alone", "horrible", "terrible",
	"worthless",
}

const (
	// KeywordsDefault is reported instead of the list when no keywords were given.
	KeywordsDefault = "default_hostile"

	AnalysisByDate = "by_date"
	AnalysisFlat   = "individual_messages"

	maxFlatMatches  = 50
	maxDailySamples = 3
)

type SentimentOptions struct {
	Keywords    []string
	DaysBack    int
	GroupByDate bool
}

// DailySentiment counts matches on one UTC calendar date.
type DailySentiment struct {
	Date    string   `json:"date"`
	Count   int      `json:"count"`
	Samples []string `json:"samples"`
}

type SentimentReport struct {
	Conversation     string           `json:"conversation"`
	Type             Kind             `json:"type"`
	KeywordsSearched []string         `json:"keywords_searched,omitempty"`
	KeywordsUsed     string           `json:"keywords_used,omitempty"`
	PeriodDays       int              `json:"period_days"`
	AnalysisType     string           `json:"analysis_type"`
	TotalMatches     int              `json:"total_matches"`
	DailyBreakdown   []DailySentiment `json:"daily_breakdown,omitempty"`
	Messages         []Message        `json:"messages,omitempty"`
}

var lower = cases.Lower(language.Und)

// Sentiment scans received messages for keywords, case-insensitively. With
// GroupByDate the matches are counted per date, newest first; otherwise the
// newest matching messages are listed.
func (r *Reader) Sentiment(ctx context.Context, identifier string, opts SentimentOptions) (*SentimentReport, error) {
	target, err := ParseTarget(identifier)
	if err != nil {
		return nil, err
	}

	report := &SentimentReport{PeriodDays: opts.DaysBack, AnalysisType: AnalysisFlat}
	if opts.GroupByDate {
		report.AnalysisType = AnalysisByDate
	}
	keywords := lo.Compact(lo.Map(opts.Keywords, func(k string, _ int) string { return strings.TrimSpace(k) }))
	if len(keywords) == 0 {
		keywords = DefaultKeywords
		report.KeywordsUsed = KeywordsDefault
	} else {
		report.KeywordsSearched = keywords
	}
	needles := lo.Map(keywords, func(k string, _ int) string { return lower.String(k) })

	q := chatdb.MessageQuery{
		After:          r.threshold(opts.DaysBack),
		ExcludeSent:    true,
		RequireContent: true,
	}
	if target.Group {
		chat, err := r.Messages.GetChat(ctx, target.ChatID)
		if err != nil {
			return nil, err
		}
		report.Type = Group
		report.Conversation = GroupName("", target.ChatID)
		if chat != nil {
			report.Conversation = GroupName(chat.DisplayName, target.ChatID)
		}
		q.Group = true
		q.ChatID = target.ChatID
	} else {
		keys, err := ResolveHandleKeys(ctx, r.Messages, r.Directory, identifier)
		if err != nil {
			return nil, err
		}
		report.Type = Individual
		report.Conversation = r.Directory.DisplayName(ctx, identifier)
		q.HandleKeys = keys.Keys()
	}

	var matches []Message
	err = r.Messages.EachMessage(ctx, q, func(row chatdb.MessageRow) bool {
		text := r.content(row)
		if text == "" || !containsAny(lower.String(text), needles) {
			return true
		}
		matches = append(matches, r.message(ctx, row, text, target.Group))
		return opts.GroupByDate || len(matches) < maxFlatMatches
	})
	if err != nil {
		return nil, err
	}

	report.TotalMatches = len(matches)
	if !opts.GroupByDate {
		report.Messages = matches
		return report, nil
	}

	byDate := make(map[string]*DailySentiment)
	for _, m := range matches {
		date := m.Time.UTC().Format("2006-01-02")
		day, ok := byDate[date]
		if !ok {
			day = &DailySentiment{Date: date}
			byDate[date] = day
			report.DailyBreakdown = append(report.DailyBreakdown, DailySentiment{Date: date})
		}
		day.Count++
		if len(day.Samples) < maxDailySamples {
			sample := m.Text
			if m.Sender != "" {
				sample = m.Sender + ": " + sample
			}
			day.Samples = append(day.Samples, sample)
		}
	}
	for i := range report.DailyBreakdown {
		report.DailyBreakdown[i] = *byDate[report.DailyBreakdown[i].Date]
	}
	return report, nil
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
