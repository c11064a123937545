package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
	"github.com/convolab/convoscope/internal/metrics"
)

var (
	statsStart   string
	statsEnd     string
	statsRegions []string
	statsKeyword string
	statsLatency bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show conversation statistics",
	Long: `Compute descriptive statistics over the loaded conversation export:
volume, thread-length distribution, regions, daily activity, language
split, sentiment signals, and (with --latency) assistant reply latency.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsStart, "start", "", "only messages on or after this date (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsEnd, "end", "", "only messages on or before this date (YYYY-MM-DD)")
	statsCmd.Flags().StringSliceVar(&statsRegions, "region", nil, "only these region codes")
	statsCmd.Flags().StringVar(&statsKeyword, "keyword", "", "only messages containing this keyword")
	statsCmd.Flags().BoolVar(&statsLatency, "latency", false, "include reply-latency analysis")
	rootCmd.AddCommand(statsCmd)
}

// statsFilter assembles the filter from the stats flags.
func statsFilter() (filter.Filter, error) {
	f := filter.Filter{Regions: statsRegions, Keyword: statsKeyword}
	for _, p := range []struct {
		value string
		dst   **time.Time
	}{{statsStart, &f.Start}, {statsEnd, &f.End}} {
		if p.value == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", p.value)
		if err != nil {
			return f, fmt.Errorf("date %q: expected YYYY-MM-DD", p.value)
		}
		*p.dst = &t
	}
	return f, f.Validate()
}

func runStats(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset()
	if err != nil {
		return err
	}

	f, err := statsFilter()
	if err != nil {
		return err
	}
	v, err := filter.Apply(ds, f)
	if err != nil {
		return err
	}
	s := metrics.Compute(v)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Conversations:  %s\n", humanize.Comma(int64(s.Conversations)))
	fmt.Fprintf(out, "Messages:       %s (user %s, assistant %s)\n",
		humanize.Comma(int64(s.Messages)),
		humanize.Comma(int64(s.RoleCounts[conv.RoleUser])),
		humanize.Comma(int64(s.RoleCounts[conv.RoleAssistant])))
	if ds.Dropped > 0 {
		fmt.Fprintf(out, "Dropped rows:   %d (unparsable timestamps)\n", ds.Dropped)
	}

	if s.Conversations > 0 {
		fmt.Fprintf(out, "Thread length:  avg %.2f, median %.0f\n", s.AvgLength, s.MedianLength)
		fmt.Fprintf(out, "                longest %s (%d msgs), shortest %s (%d msgs)\n",
			s.Longest.ThreadID, s.Longest.Messages, s.Shortest.ThreadID, s.Shortest.Messages)
		fmt.Fprintf(out, "                over 6 msgs: %d, at most 2 msgs: %d\n", s.LongThreads, s.ShortThreads)
	}

	if len(s.RegionThreads) > 0 {
		fmt.Fprintln(out, "\nRegions:")
		for _, r := range regionOrder(s) {
			fmt.Fprintf(out, "  %-6s %s threads, %s messages\n", r,
				humanize.Comma(int64(s.RegionThreads[r])),
				humanize.Comma(int64(s.RegionMessages[r])))
		}
	}

	fmt.Fprintf(out, "\nLanguage:       arabic %s, other %s\n",
		humanize.Comma(int64(s.ArabicMessages)), humanize.Comma(int64(s.OtherMessages)))
	fmt.Fprintf(out, "User sentiment: positive %d, negative %d\n", s.PositiveUser, s.NegativeUser)
	fmt.Fprintf(out, "Signals:        error mentions %d, empty assistant replies %d, long prompts %d\n",
		s.ErrorMentions, s.EmptyAssistant, s.LongUserPrompts)

	if len(s.Daily) > 0 {
		fmt.Fprintln(out, "\nDaily activity (threads/messages):")
		for _, d := range s.Daily {
			fmt.Fprintf(out, "  %s  %4d / %d\n", d.Date, d.Threads, d.Messages)
		}
	}

	if statsLatency {
		printLatency(cmd, v)
	}
	return nil
}

func printLatency(cmd *cobra.Command, v *filter.View) {
	threshold := cfg.Metrics.LatencyThresholdSeconds
	stats := metrics.ComputeLatency(metrics.Latencies(v), threshold)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nReply latency (%s measured pairs):\n", humanize.Comma(int64(stats.Count)))
	if stats.Count == 0 {
		return
	}
	fmt.Fprintf(out, "  avg %s, median %s, p95 %s\n",
		metrics.FormatSeconds(stats.AvgSeconds),
		metrics.FormatSeconds(stats.MedianSeconds),
		metrics.FormatSeconds(stats.P95Seconds))
	fmt.Fprintf(out, "  over %.0fs threshold: %d\n", threshold, stats.OverThreshold)
	if stats.Slowest != nil {
		fmt.Fprintf(out, "  slowest: %s in thread %s\n",
			metrics.FormatSeconds(stats.Slowest.Seconds), stats.Slowest.ThreadID)
	}
	if stats.Fastest != nil {
		fmt.Fprintf(out, "  fastest: %s in thread %s\n",
			metrics.FormatSeconds(stats.Fastest.Seconds), stats.Fastest.ThreadID)
	}
}

// regionOrder sorts regions by thread count descending, then name.
func regionOrder(s metrics.Snapshot) []string {
	regions := make([]string, 0, len(s.RegionThreads))
	for r := range s.RegionThreads {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if s.RegionThreads[a] != s.RegionThreads[b] {
			return s.RegionThreads[a] > s.RegionThreads[b]
		}
		return a < b
	})
	return regions
}
