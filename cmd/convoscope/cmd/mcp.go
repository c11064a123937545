package cmd

import (
	"github.com/spf13/cobra"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server over stdio",
	Long: `Expose the loaded conversation export to MCP clients (Claude Desktop
and similar) over stdin/stdout. All tools are read-only.

Example client configuration:

  {
    "mcpServers": {
      "convoscope": {
        "command": "convoscope",
        "args": ["mcp", "--csv", "/path/to/export.csv"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		provider := func() *conv.Dataset { return ds }
		return mcp.Serve(cmd.Context(), provider, cfg.Metrics.LatencyThresholdSeconds)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
