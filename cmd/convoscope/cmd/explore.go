package cmd

import (
	"github.com/spf13/cobra"

	"github.com/convolab/convoscope/internal/tui"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse conversations interactively",
	Long: `Open a terminal UI over the loaded conversation export. Navigate
threads with the arrow keys, press / to filter by keyword, r to cycle
regions, and enter to read a transcript.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		return tui.Run(ds)
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}
