package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Query represents a parsed search expression.
type Query struct {
	TextTerms  []string   // bare words and "quoted phrases"; all must match
	Roles      []string   // role: filters
	Regions    []string   // region: filters
	Threads    []string   // thread: filters
	BeforeDate *time.Time // before: filter (exclusive)
	AfterDate  *time.Time // after: filter (inclusive)
}

// IsEmpty returns true if the query has no search criteria.
func (q *Query) IsEmpty() bool {
	return len(q.TextTerms) == 0 &&
		len(q.Roles) == 0 &&
		len(q.Regions) == 0 &&
		len(q.Threads) == 0 &&
		q.BeforeDate == nil &&
		q.AfterDate == nil
}

// operatorFn applies a parsed operator:value pair to the query.
type operatorFn func(q *Query, value string, now time.Time)

var operators = map[string]operatorFn{
	"role": func(q *Query, v string, _ time.Time) {
		q.Roles = append(q.Roles, strings.ToLower(v))
	},
	"region": func(q *Query, v string, _ time.Time) {
		q.Regions = append(q.Regions, strings.ToUpper(v))
	},
	"thread": func(q *Query, v string, _ time.Time) {
		q.Threads = append(q.Threads, v)
	},
	"before": func(q *Query, v string, _ time.Time) {
		if t := parseDate(v); t != nil {
			q.BeforeDate = t
		}
	},
	"after": func(q *Query, v string, _ time.Time) {
		if t := parseDate(v); t != nil {
			q.AfterDate = t
		}
	},
	"older_than": func(q *Query, v string, now time.Time) {
		if t := parseRelativeDate(v, now); t != nil {
			q.BeforeDate = t
		}
	},
	"newer_than": func(q *Query, v string, now time.Time) {
		if t := parseRelativeDate(v, now); t != nil {
			q.AfterDate = t
		}
	},
}

// Parser holds configuration for query parsing.
type Parser struct {
	Now func() time.Time // time source, mockable for testing
}

// NewParser creates a Parser with default settings.
func NewParser() *Parser {
	return &Parser{Now: func() time.Time { return time.Now().UTC() }}
}

// Parse parses a search expression into a Query.
//
// Supported operators:
//   - role: - message role filter (user or assistant)
//   - region: - region code filter
//   - thread: - thread id filter
//   - before:, after: - date filters (YYYY-MM-DD)
//   - older_than:, newer_than: - relative date filters (e.g. 7d, 2w, 1m, 1y)
//   - Bare words and "quoted phrases" - message text search
//
// Unknown operator:value tokens fall through to text search.
func (p *Parser) Parse(queryStr string) *Query {
	q := &Query{}
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now()
	}

	for _, token := range tokenize(queryStr) {
		if isQuotedPhrase(token) {
			q.TextTerms = append(q.TextTerms, unquote(token))
			continue
		}

		if idx := strings.Index(token, ":"); idx != -1 {
			op := strings.ToLower(token[:idx])
			value := unquote(token[idx+1:])

			if handler, ok := operators[op]; ok {
				handler(q, value, now)
				continue
			}
		}

		q.TextTerms = append(q.TextTerms, token)
	}

	return q
}

// Parse is a convenience function that parses using default settings.
func Parse(queryStr string) *Query {
	return NewParser().Parse(queryStr)
}

// unquote removes surrounding double quotes from a string if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// isQuotedPhrase returns true if the token is a double-quoted phrase.
func isQuotedPhrase(token string) bool {
	return len(token) > 2 && token[0] == '"' && token[len(token)-1] == '"'
}

// tokenize splits a query string on spaces, preserving quoted phrases and
// keeping operator:"quoted value" pairs together as one token.
func tokenize(queryStr string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	afterColon := false
	opQuoted := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, char := range queryStr {
		switch {
		case char == '"' && !inQuotes:
			inQuotes = true
			opQuoted = afterColon
			if !afterColon {
				flush()
			}
			current.WriteRune(char)
			afterColon = false
		case char == '"' && inQuotes:
			inQuotes = false
			current.WriteRune(char)
			if opQuoted {
				flush()
			}
			opQuoted = false
		case char == ' ' && !inQuotes:
			flush()
			afterColon = false
		default:
			current.WriteRune(char)
			afterColon = char == ':'
		}
	}
	flush()

	return tokens
}

// parseDate parses date strings like YYYY-MM-DD or YYYY/MM/DD.
func parseDate(value string) *time.Time {
	formats := []string{
		"2006-01-02",
		"2006/01/02",
	}

	value = strings.TrimSpace(value)
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

var relativeDateRe = regexp.MustCompile(`^(\d+)([dwmy])$`)

// parseRelativeDate parses relative dates like 7d, 2w, 1m, 1y relative to now.
func parseRelativeDate(value string, now time.Time) *time.Time {
	match := relativeDateRe.FindStringSubmatch(strings.TrimSpace(strings.ToLower(value)))
	if match == nil {
		return nil
	}

	amount, _ := strconv.Atoi(match[1])

	var result time.Time
	switch match[2] {
	case "d":
		result = now.AddDate(0, 0, -amount)
	case "w":
		result = now.AddDate(0, 0, -amount*7)
	case "m":
		result = now.AddDate(0, -amount, 0)
	case "y":
		result = now.AddDate(-amount, 0, 0)
	default:
		return nil
	}

	return &result
}
