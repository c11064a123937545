package intelligence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
	"github.com/convolab/convoscope/internal/metrics"
)

// Digest renders a compact, read-only summary of the dataset for the
// agent's context window. It carries aggregates, never raw PII dumps.
func Digest(ds *conv.Dataset) string {
	v, err := filter.Apply(ds, filter.Filter{})
	if err != nil {
		// An empty filter never fails validation.
		return "(digest unavailable)"
	}
	s := metrics.Compute(v)

	var b strings.Builder
	fmt.Fprintf(&b, "Rows: %d messages in %d threads\n", s.Messages, s.Conversations)

	first, last := ds.Span()
	if !first.IsZero() {
		fmt.Fprintf(&b, "Date span: %s to %s\n", first.Format("2006-01-02"), last.Format("2006-01-02"))
	}

	fmt.Fprintf(&b, "Messages by role: user=%d assistant=%d\n",
		s.RoleCounts[conv.RoleUser], s.RoleCounts[conv.RoleAssistant])

	if len(s.RegionThreads) > 0 {
		regions := make([]string, 0, len(s.RegionThreads))
		for r := range s.RegionThreads {
			regions = append(regions, r)
		}
		sort.Strings(regions)
		parts := make([]string, len(regions))
		for i, r := range regions {
			parts[i] = fmt.Sprintf("%s=%d threads/%d msgs", r, s.RegionThreads[r], s.RegionMessages[r])
		}
		fmt.Fprintf(&b, "Regions: %s\n", strings.Join(parts, ", "))
	}

	if s.Conversations > 0 {
		fmt.Fprintf(&b, "Thread length: avg=%.2f median=%.0f longest=%s (%d msgs) shortest=%s (%d msgs)\n",
			s.AvgLength, s.MedianLength,
			s.Longest.ThreadID, s.Longest.Messages,
			s.Shortest.ThreadID, s.Shortest.Messages)
		fmt.Fprintf(&b, "Threads over 6 msgs: %d, at most 2 msgs: %d\n", s.LongThreads, s.ShortThreads)
	}

	fmt.Fprintf(&b, "Language split: arabic=%d other=%d\n", s.ArabicMessages, s.OtherMessages)
	fmt.Fprintf(&b, "User sentiment: positive=%d negative=%d; error mentions=%d; empty assistant replies=%d\n",
		s.PositiveUser, s.NegativeUser, s.ErrorMentions, s.EmptyAssistant)

	if len(s.Daily) > 0 {
		fmt.Fprintf(&b, "Daily activity (threads/messages):\n")
		for _, d := range s.Daily {
			fmt.Fprintf(&b, "  %s: %d/%d\n", d.Date, d.Threads, d.Messages)
		}
	}

	return b.String()
}
