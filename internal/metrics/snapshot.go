// Package metrics computes descriptive statistics over a filtered view.
// Every function here is pure: same view in, same numbers out.
package metrics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
)

// ThreadLength pairs a thread with its message count.
type ThreadLength struct {
	ThreadID string `json:"thread_id"`
	Messages int    `json:"messages"`
}

// DayCount is one point of the daily time series. Threads counts the
// distinct threads active that day, Messages the messages sent.
type DayCount struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Threads  int    `json:"threads"`
	Messages int    `json:"messages"`
}

// Snapshot is the aggregate view of a filtered dataset. It is recomputed from
// scratch on every call and never mutated afterwards.
type Snapshot struct {
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`

	RoleCounts     map[conv.Role]int `json:"role_counts"`
	RegionThreads  map[string]int    `json:"region_threads"`
	RegionMessages map[string]int    `json:"region_messages"`

	// Lengths is the conversation-length distribution, longest first.
	Lengths       []ThreadLength `json:"lengths"`
	AvgLength     float64        `json:"avg_length"`
	MedianLength  float64        `json:"median_length"`
	LongThreads   int            `json:"long_threads"`   // more than 6 messages
	ShortThreads  int            `json:"short_threads"`  // 2 messages or fewer
	Longest       ThreadLength   `json:"longest"`
	Shortest      ThreadLength   `json:"shortest"`

	Daily []DayCount `json:"daily"`

	ArabicMessages int `json:"arabic_messages"`
	OtherMessages  int `json:"other_messages"`

	PositiveUser    int `json:"positive_user"`
	NegativeUser    int `json:"negative_user"`
	ErrorMentions   int `json:"error_mentions"`
	EmptyAssistant  int `json:"empty_assistant"`
	LongUserPrompts int `json:"long_user_prompts"` // more than 30 words
}

const longPromptWords = 30

// Compute builds a snapshot from the view.
func Compute(v *filter.View) Snapshot {
	s := Snapshot{
		RoleCounts:     make(map[conv.Role]int),
		RegionThreads:  make(map[string]int),
		RegionMessages: make(map[string]int),
	}

	threads := v.Threads()
	s.Conversations = len(threads)
	s.Messages = len(v.Messages)

	for _, m := range v.Messages {
		s.RoleCounts[m.Role]++
		s.RegionMessages[m.Region]++
		if HasArabic(m.Text) {
			s.ArabicMessages++
		} else {
			s.OtherMessages++
		}
		if mentionsError(m.Text) {
			s.ErrorMentions++
		}
		switch m.Role {
		case conv.RoleUser:
			switch Sentiment(m.Text) {
			case SentimentPositive:
				s.PositiveUser++
			case SentimentNegative:
				s.NegativeUser++
			}
			if len(strings.Fields(m.Text)) > longPromptWords {
				s.LongUserPrompts++
			}
		case conv.RoleAssistant:
			if strings.TrimSpace(m.Text) == "" {
				s.EmptyAssistant++
			}
		}
	}

	for _, t := range threads {
		s.RegionThreads[t.Region()]++
		n := len(t.Messages)
		s.Lengths = append(s.Lengths, ThreadLength{ThreadID: t.ID, Messages: n})
		if n > 6 {
			s.LongThreads++
		}
		if n <= 2 {
			s.ShortThreads++
		}
	}
	sort.SliceStable(s.Lengths, func(i, j int) bool {
		if s.Lengths[i].Messages != s.Lengths[j].Messages {
			return s.Lengths[i].Messages > s.Lengths[j].Messages
		}
		return s.Lengths[i].ThreadID < s.Lengths[j].ThreadID
	})
	if len(s.Lengths) > 0 {
		s.Longest = s.Lengths[0]
		s.Shortest = s.Lengths[len(s.Lengths)-1]
		s.AvgLength = float64(s.Messages) / float64(s.Conversations)
		s.MedianLength = medianLength(s.Lengths)
	}

	s.Daily = dailySeries(v)
	return s
}

// medianLength takes the distribution sorted in either direction.
func medianLength(lengths []ThreadLength) float64 {
	counts := make([]int, len(lengths))
	for i, l := range lengths {
		counts[i] = l.Messages
	}
	sort.Ints(counts)
	n := len(counts)
	if n%2 == 1 {
		return float64(counts[n/2])
	}
	return float64(counts[n/2-1]+counts[n/2]) / 2
}

func dailySeries(v *filter.View) []DayCount {
	type dayAgg struct {
		threads  map[string]struct{}
		messages int
	}
	days := make(map[string]*dayAgg)
	for _, m := range v.Messages {
		key := m.Timestamp.Format("2006-01-02")
		agg, ok := days[key]
		if !ok {
			agg = &dayAgg{threads: make(map[string]struct{})}
			days[key] = agg
		}
		agg.threads[m.ThreadID] = struct{}{}
		agg.messages++
	}

	var out []DayCount
	for key, agg := range days {
		out = append(out, DayCount{Date: key, Threads: len(agg.threads), Messages: agg.messages})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// HasArabic reports whether the text contains any Arabic-block rune.
func HasArabic(text string) bool {
	for _, r := range text {
		if r >= 0x0600 && r <= 0x06FF {
			return true
		}
	}
	return false
}

// WordCount pairs a word with its occurrence count.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// TopWords returns the n most frequent words across the messages,
// lowercased, ties broken alphabetically.
func TopWords(messages []conv.Message, n int) []WordCount {
	counts := make(map[string]int)
	for _, m := range messages {
		for _, w := range splitWords(m.Text) {
			counts[w]++
		}
	}
	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
