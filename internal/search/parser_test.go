package search

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timePtr(v time.Time) *time.Time { return &v }

// assertQueryEqual diffs two queries, with nil and empty slices equal.
func assertQueryEqual(t *testing.T, got, want Query) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Query
	}{
		{
			name:  "role operator",
			query: "role:user",
			want:  Query{Roles: []string{"user"}},
		},
		{
			name:  "role operator normalizes case",
			query: "role:Assistant",
			want:  Query{Roles: []string{"assistant"}},
		},
		{
			name:  "region operator uppercases",
			query: "region:ae",
			want:  Query{Regions: []string{"AE"}},
		},
		{
			name:  "multiple regions",
			query: "region:AE region:SA",
			want:  Query{Regions: []string{"AE", "SA"}},
		},
		{
			name:  "thread operator",
			query: "thread:t42",
			want:  Query{Threads: []string{"t42"}},
		},
		{
			name:  "bare text",
			query: "lipstick shade",
			want:  Query{TextTerms: []string{"lipstick", "shade"}},
		},
		{
			name:  "quoted phrase",
			query: `"matte lipstick"`,
			want:  Query{TextTerms: []string{"matte lipstick"}},
		},
		{
			name:  "before date",
			query: "before:2025-07-15",
			want:  Query{BeforeDate: timePtr(utcDate(2025, time.July, 15))},
		},
		{
			name:  "after date slash format",
			query: "after:2025/07/01",
			want:  Query{AfterDate: timePtr(utcDate(2025, time.July, 1))},
		},
		{
			name:  "invalid date ignored",
			query: "before:notadate serum",
			want:  Query{TextTerms: []string{"serum"}},
		},
		{
			name:  "unknown operator falls through to text",
			query: "price:100",
			want:  Query{TextTerms: []string{"price:100"}},
		},
		{
			name:  "combined query",
			query: `role:user region:AE "eye cream" after:2025-07-01`,
			want: Query{
				Roles:     []string{"user"},
				Regions:   []string{"AE"},
				TextTerms: []string{"eye cream"},
				AfterDate: timePtr(utcDate(2025, time.July, 1)),
			},
		},
		{
			name:  "operator with quoted value",
			query: `thread:"thread 7"`,
			want:  Query{Threads: []string{"thread 7"}},
		},
		{
			name:  "empty query",
			query: "",
			want:  Query{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.query)
			assertQueryEqual(t, *got, tt.want)
		})
	}
}

func TestParseRelativeDates(t *testing.T) {
	now := utcDate(2025, time.August, 15)
	p := &Parser{Now: func() time.Time { return now }}

	tests := []struct {
		query string
		want  Query
	}{
		{"newer_than:7d", Query{AfterDate: timePtr(utcDate(2025, time.August, 8))}},
		{"older_than:2w", Query{BeforeDate: timePtr(utcDate(2025, time.August, 1))}},
		{"newer_than:1m", Query{AfterDate: timePtr(utcDate(2025, time.July, 15))}},
		{"older_than:1y", Query{BeforeDate: timePtr(utcDate(2024, time.August, 15))}},
		{"newer_than:soon", Query{TextTerms: nil}}, // unparsable value ignored
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assertQueryEqual(t, *p.Parse(tt.query), tt.want)
		})
	}
}

func TestQueryIsEmpty(t *testing.T) {
	if !Parse("").IsEmpty() {
		t.Error("blank query should be empty")
	}
	if Parse("role:user").IsEmpty() {
		t.Error("role query should not be empty")
	}
	if Parse("hello").IsEmpty() {
		t.Error("text query should not be empty")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{`"a b" c`, []string{`"a b"`, "c"}},
		{`role:"a b" c`, []string{`role:"a b"`, "c"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
	}
	for _, tt := range tests {
		got := tokenize(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}
