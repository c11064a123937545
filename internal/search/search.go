// Package search implements keyword search across all loaded messages,
// with the summary statistics the dashboard shows next to the results.
// Queries are either a plain keyword (Run) or a parsed expression with
// role:/region:/date operators (Parse + RunQuery).
package search

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
	"github.com/convolab/convoscope/internal/metrics"
)

// DefaultLimit caps displayed matches when the caller does not choose one.
const DefaultLimit = 100

const topWordCount = 20

// Options configures one search run.
type Options struct {
	Keyword       string
	CaseSensitive bool
	Role          conv.Role // optional
	Region        string    // optional
	Limit         int       // max matches returned; 0 means DefaultLimit
}

// Result holds the matches and their summary statistics.
type Result struct {
	Keyword string         `json:"keyword"`
	Total   int            `json:"total"`
	Matches []conv.Message `json:"matches"` // newest first, capped at Limit

	ThreadCount int               `json:"thread_count"`
	RoleCounts  map[conv.Role]int `json:"role_counts"`

	TopWords []metrics.WordCount `json:"top_words"`
	Daily    []DayHits           `json:"daily"`
}

// DayHits counts matches per day.
type DayHits struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Run searches the dataset for a single keyword. A missing keyword is a
// caller error; zero matches is a valid result.
func Run(ds *conv.Dataset, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.Keyword) == "" {
		return nil, eris.Wrap(filter.ErrFilter, "search keyword is required")
	}

	needle := opts.Keyword
	if !opts.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	match := func(m conv.Message) bool {
		if opts.Role != "" && m.Role != opts.Role {
			return false
		}
		if opts.Region != "" && !strings.EqualFold(m.Region, opts.Region) {
			return false
		}
		text := m.Text
		if !opts.CaseSensitive {
			text = strings.ToLower(text)
		}
		return strings.Contains(text, needle)
	}
	return collect(ds, opts.Keyword, opts.Limit, match), nil
}

// RunQuery searches the dataset with a parsed query expression. All
// criteria are ANDed; text terms match case-insensitively.
func RunQuery(ds *conv.Dataset, q *Query, limit int) (*Result, error) {
	if q == nil || q.IsEmpty() {
		return nil, eris.Wrap(filter.ErrFilter, "search query is empty")
	}
	return collect(ds, strings.Join(q.TextTerms, " "), limit, q.matches), nil
}

// matches reports whether a message satisfies every query criterion.
func (q *Query) matches(m conv.Message) bool {
	if len(q.Roles) > 0 && !containsFold(q.Roles, string(m.Role)) {
		return false
	}
	if len(q.Regions) > 0 && !containsFold(q.Regions, m.Region) {
		return false
	}
	if len(q.Threads) > 0 && !containsFold(q.Threads, m.ThreadID) {
		return false
	}
	if q.AfterDate != nil && m.Timestamp.Before(*q.AfterDate) {
		return false
	}
	if q.BeforeDate != nil && !m.Timestamp.Before(*q.BeforeDate) {
		return false
	}

	text := strings.ToLower(m.Text)
	for _, term := range q.TextTerms {
		if !strings.Contains(text, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// collect scans the dataset once and builds the result with its
// aggregates: per-role and per-day counts, distinct threads, top words.
func collect(ds *conv.Dataset, label string, limit int, match func(conv.Message) bool) *Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	res := &Result{
		Keyword:    label,
		RoleCounts: make(map[conv.Role]int),
	}
	threads := make(map[string]struct{})
	days := make(map[string]int)
	var all []conv.Message

	for _, m := range ds.Messages {
		if !match(m) {
			continue
		}
		all = append(all, m)
		threads[m.ThreadID] = struct{}{}
		days[m.Timestamp.Format("2006-01-02")]++
		res.RoleCounts[m.Role]++
	}

	res.Total = len(all)
	res.ThreadCount = len(threads)
	res.TopWords = metrics.TopWords(all, topWordCount)

	for date, count := range days {
		res.Daily = append(res.Daily, DayHits{Date: date, Count: count})
	}
	sort.Slice(res.Daily, func(i, j int) bool { return res.Daily[i].Date < res.Daily[j].Date })

	// Newest first for display; ties keep dataset order.
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if len(all) > limit {
		all = all[:limit]
	}
	res.Matches = all
	return res
}

// Highlight wraps each keyword occurrence in text with the given markers,
// preserving the original casing of the match. Matching folds rune by
// rune on the original text, so offsets stay valid even where lowercasing
// would change a rune's byte length.
func Highlight(text, keyword string, caseSensitive bool, openTag, closeTag string) string {
	if keyword == "" {
		return text
	}

	var b strings.Builder
	for len(text) > 0 {
		i, n := indexFold(text, keyword, caseSensitive)
		if i < 0 {
			break
		}
		b.WriteString(text[:i])
		b.WriteString(openTag)
		b.WriteString(text[i : i+n])
		b.WriteString(closeTag)
		text = text[i+n:]
	}
	b.WriteString(text)
	return b.String()
}

// indexFold locates keyword in s, returning the byte offset and the byte
// length of the matched span in s, or (-1, 0).
func indexFold(s, keyword string, caseSensitive bool) (int, int) {
	if caseSensitive {
		i := strings.Index(s, keyword)
		if i < 0 {
			return -1, 0
		}
		return i, len(keyword)
	}
	for i := 0; i < len(s); {
		if n := matchFold(s[i:], keyword); n > 0 {
			return i, n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, 0
}

// matchFold returns the byte length of a case-insensitive match of
// keyword at the start of s, or 0 when s does not start with it.
func matchFold(s, keyword string) int {
	n := 0
	for _, kr := range keyword {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 || unicode.ToLower(r) != unicode.ToLower(kr) {
			return 0
		}
		n += size
	}
	return n
}
