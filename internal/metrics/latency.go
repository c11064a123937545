package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
)

// Latency is the delay from a user message to the next assistant reply
// in the same thread.
type Latency struct {
	ThreadID      string    `json:"thread_id"`
	Region        string    `json:"region"`
	UserAt        time.Time `json:"user_at"`
	AssistantAt   time.Time `json:"assistant_at"`
	Seconds       float64   `json:"seconds"`
	UserText      string    `json:"user_text"`
	AssistantText string    `json:"assistant_text"`
}

// Deltas beyond this are treated as data problems, not real replies.
const maxLatency = 24 * time.Hour

// Latencies walks each thread in timestamp order and pairs every
// assistant reply with the most recent user message. Multiple assistant
// replies to one prompt are all measured against that prompt. Negative
// deltas and deltas over 24h are skipped.
func Latencies(v *filter.View) []Latency {
	var out []Latency
	for _, t := range v.Threads() {
		var lastUser *conv.Message
		for i := range t.Messages {
			m := &t.Messages[i]
			switch m.Role {
			case conv.RoleUser:
				lastUser = m
			case conv.RoleAssistant:
				if lastUser == nil {
					continue
				}
				d := m.Timestamp.Sub(lastUser.Timestamp)
				if d < 0 || d > maxLatency {
					continue
				}
				out = append(out, Latency{
					ThreadID:      t.ID,
					Region:        m.Region,
					UserAt:        lastUser.Timestamp,
					AssistantAt:   m.Timestamp,
					Seconds:       d.Seconds(),
					UserText:      lastUser.Text,
					AssistantText: m.Text,
				})
			}
		}
	}
	return out
}

// LatencyStats summarizes a set of reply latencies.
type LatencyStats struct {
	Count         int      `json:"count"`
	AvgSeconds    float64  `json:"avg_seconds"`
	MedianSeconds float64  `json:"median_seconds"`
	P95Seconds    float64  `json:"p95_seconds"`
	OverThreshold int      `json:"over_threshold"`
	Fastest       *Latency `json:"fastest,omitempty"`
	Slowest       *Latency `json:"slowest,omitempty"`
}

// ComputeLatency summarizes lats. thresholdSeconds flags replies slower
// than the given critical threshold; pass 0 to disable.
func ComputeLatency(lats []Latency, thresholdSeconds float64) LatencyStats {
	stats := LatencyStats{Count: len(lats)}
	if len(lats) == 0 {
		return stats
	}

	secs := make([]float64, len(lats))
	var sum float64
	fastest, slowest := 0, 0
	for i, l := range lats {
		secs[i] = l.Seconds
		sum += l.Seconds
		if l.Seconds < lats[fastest].Seconds {
			fastest = i
		}
		if l.Seconds > lats[slowest].Seconds {
			slowest = i
		}
		if thresholdSeconds > 0 && l.Seconds > thresholdSeconds {
			stats.OverThreshold++
		}
	}
	sort.Float64s(secs)

	stats.AvgSeconds = sum / float64(len(secs))
	stats.MedianSeconds = quantile(secs, 0.5)
	stats.P95Seconds = quantile(secs, 0.95)
	f, s := lats[fastest], lats[slowest]
	stats.Fastest = &f
	stats.Slowest = &s
	return stats
}

// quantile interpolates linearly between order statistics; secs must be
// sorted ascending.
func quantile(secs []float64, q float64) float64 {
	if len(secs) == 1 {
		return secs[0]
	}
	pos := q * float64(len(secs)-1)
	lo := int(pos)
	if lo >= len(secs)-1 {
		return secs[len(secs)-1]
	}
	frac := pos - float64(lo)
	return secs[lo]*(1-frac) + secs[lo+1]*frac
}

// FormatSeconds renders a latency for display: milliseconds under a
// second, then seconds, then minutes and hours.
func FormatSeconds(s float64) string {
	switch {
	case s < 1:
		return fmt.Sprintf("%.0f ms", s*1000)
	case s < 60:
		return fmt.Sprintf("%.2f s", s)
	}
	total := int(s + 0.5)
	mins, secs := total/60, total%60
	if mins < 60 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	hours, mins := mins/60, mins%60
	return fmt.Sprintf("%dh %dm %ds", hours, mins, secs)
}
