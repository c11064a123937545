package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/convolab/convoscope/internal/search"
)

var (
	searchLimit   int
	searchNoColor bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search messages",
	Long: `Search the loaded conversation export. The query mixes text terms
with operators, all ANDed together:

  role:user | role:assistant    message role
  region:AE                     region code
  thread:t42                    thread id
  before: / after:              dates (YYYY-MM-DD)
  older_than: / newer_than:     relative dates (7d, 2w, 1m, 1y)
  "quoted phrase"               exact phrase in message text

Example:

  convoscope search 'role:user region:SA "eye cream" newer_than:2w'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", search.DefaultLimit, "maximum results shown")
	searchCmd.Flags().BoolVar(&searchNoColor, "no-color", false, "disable match highlighting")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset()
	if err != nil {
		return err
	}

	query := search.Parse(strings.Join(args, " "))
	res, err := search.RunQuery(ds, query, searchLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Total == 0 {
		fmt.Fprintln(out, "No matches.")
		return nil
	}

	openTag, closeTag := "\x1b[1;33m", "\x1b[0m"
	if searchNoColor {
		openTag, closeTag = "[", "]"
	}
	for _, m := range res.Matches {
		text := strings.ReplaceAll(m.Text, "\n", " ")
		for _, term := range query.TextTerms {
			text = search.Highlight(text, term, false, openTag, closeTag)
		}
		fmt.Fprintf(out, "%s  %-12s %-9s %s\n",
			m.Timestamp.Format("2006-01-02 15:04"), m.ThreadID, m.Role, text)
	}

	fmt.Fprintf(out, "\n%d match(es) in %d thread(s)", res.Total, res.ThreadCount)
	if res.Total > len(res.Matches) {
		fmt.Fprintf(out, ", showing %d", len(res.Matches))
	}
	fmt.Fprintln(out)
	return nil
}
