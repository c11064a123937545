package metrics

import "strings"

// SentimentTag classifies a user message by fixed word lists.
type SentimentTag int

const (
	SentimentNeutral SentimentTag = iota
	SentimentPositive
	SentimentNegative
)

// Word lists carried over from the product dashboard. Matching is
// case-insensitive substring, so "thanks" hits "thank".
var (
	positiveWords = []string{
		"thank", "great", "awesome", "perfect", "amazing", "love",
		"happy", "helpful", "👍",
	}
	negativeWords = []string{
		"not working", "bad", "hate", "angry", "frustrated", "annoy",
		"useless", "waste", "problem", "issue", "disappoint",
		"😡", "😠", "👎",
	}
	errorWords = []string{"error", "failed", "exception", "problem", "issue"}
)

// Sentiment tags a message. Negative wins when both lists match.
func Sentiment(text string) SentimentTag {
	lower := strings.ToLower(text)
	if containsAny(lower, negativeWords) {
		return SentimentNegative
	}
	if containsAny(lower, positiveWords) {
		return SentimentPositive
	}
	return SentimentNeutral
}

// mentionsError reports whether the text mentions a failure keyword.
func mentionsError(text string) bool {
	return containsAny(strings.ToLower(text), errorWords)
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
