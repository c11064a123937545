// Package mcp exposes the loaded conversation dataset to MCP clients
// over stdio. Every tool is read-only.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/convolab/convoscope/internal/conv"
)

// Tool name constants.
const (
	ToolGetStats       = "get_stats"
	ToolGetLatency     = "get_latency"
	ToolListThreads    = "list_threads"
	ToolGetThread      = "get_thread"
	ToolSearchMessages = "search_messages"
)

// DatasetProvider returns the current dataset on each tool call, so a
// server sharing state with the HTTP API sees uploads immediately.
type DatasetProvider func() *conv.Dataset

// Common argument helpers for recurring tool option definitions.

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

func withOffset() mcp.ToolOption {
	return mcp.WithNumber("offset",
		mcp.Description("Number of results to skip for pagination (default 0)"),
	)
}

func withDateRange() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("start",
			mcp.Description("Only messages on or after this date (YYYY-MM-DD)"),
		),
		mcp.WithString("end",
			mcp.Description("Only messages on or before this date (YYYY-MM-DD)"),
		),
	}
}

func withRegion() mcp.ToolOption {
	return mcp.WithString("region",
		mcp.Description("Only messages from this region code (e.g. AE, SA)"),
	)
}

// Serve creates an MCP server with conversation analytics tools and
// serves over stdio. It blocks until stdin is closed or the context is
// cancelled.
func Serve(ctx context.Context, provider DatasetProvider, latencyThreshold float64) error {
	s := NewServer(provider, latencyThreshold)
	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// NewServer builds the MCP server with all tools registered.
func NewServer(provider DatasetProvider, latencyThreshold float64) *server.MCPServer {
	s := server.NewMCPServer(
		"convoscope",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{dataset: provider, latencyThreshold: latencyThreshold}

	s.AddTool(getStatsTool(), h.getStats)
	s.AddTool(getLatencyTool(), h.getLatency)
	s.AddTool(listThreadsTool(), h.listThreads)
	s.AddTool(getThreadTool(), h.getThread)
	s.AddTool(searchMessagesTool(), h.searchMessages)

	return s
}

func getStatsTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Get aggregate conversation statistics: volume, length distribution, regions, daily activity, language split, and sentiment signals. Accepts optional filters."),
		mcp.WithReadOnlyHintAnnotation(true),
		withRegion(),
		mcp.WithString("keyword",
			mcp.Description("Only messages containing this keyword (case-insensitive)"),
		),
	}
	opts = append(opts, withDateRange()...)
	return mcp.NewTool(ToolGetStats, opts...)
}

func getLatencyTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Get assistant reply-latency statistics: average, median, p95, and the slowest and fastest exchanges."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("threshold",
			mcp.Description("Flag replies slower than this many seconds"),
		),
		withRegion(),
	}
	opts = append(opts, withDateRange()...)
	return mcp.NewTool(ToolGetLatency, opts...)
}

func listThreadsTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("List conversation threads with message counts and time bounds, sorted by thread ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		withRegion(),
		withLimit("20"),
		withOffset(),
	}
	opts = append(opts, withDateRange()...)
	return mcp.NewTool(ToolListThreads, opts...)
}

func getThreadTool() mcp.Tool {
	return mcp.NewTool(ToolGetThread,
		mcp.WithDescription("Get the full transcript of one conversation thread by ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Thread ID"),
		),
	)
}

func searchMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchMessages,
		mcp.WithDescription("Search message text for a keyword. Returns matches newest first plus summary statistics."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("Substring to search for"),
		),
		mcp.WithBoolean("case_sensitive",
			mcp.Description("Match case exactly (default false)"),
		),
		mcp.WithString("role",
			mcp.Description("Only messages from this sender role"),
			mcp.Enum("user", "assistant"),
		),
		withRegion(),
		withLimit("100"),
	)
}
