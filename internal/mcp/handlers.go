package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
	"github.com/convolab/convoscope/internal/metrics"
	"github.com/convolab/convoscope/internal/search"
)

const maxLimit = 1000

type handlers struct {
	dataset          DatasetProvider
	latencyThreshold float64
}

// getDateArg extracts an optional date (YYYY-MM-DD) from the arguments map.
func getDateArg(args map[string]any, key string) (*time.Time, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q: expected YYYY-MM-DD", key, v)
	}
	return &t, nil
}

// filterFromArgs builds the shared filter arguments: start, end, region,
// and optionally keyword.
func filterFromArgs(args map[string]any) (filter.Filter, error) {
	var f filter.Filter
	var err error
	if f.Start, err = getDateArg(args, "start"); err != nil {
		return f, err
	}
	if f.End, err = getDateArg(args, "end"); err != nil {
		return f, err
	}
	if v, ok := args["region"].(string); ok && v != "" {
		f.Regions = []string{v}
	}
	if v, ok := args["keyword"].(string); ok {
		f.Keyword = v
	}
	return f, nil
}

func (h *handlers) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := filterFromArgs(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	v, err := filter.Apply(h.dataset(), f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid filter: %v", err)), nil
	}

	return jsonResult(metrics.Compute(v))
}

func (h *handlers) getLatency(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	f, err := filterFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	v, err := filter.Apply(h.dataset(), f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid filter: %v", err)), nil
	}

	threshold := h.latencyThreshold
	if t, ok := args["threshold"].(float64); ok && t >= 0 {
		threshold = t
	}

	return jsonResult(metrics.ComputeLatency(metrics.Latencies(v), threshold))
}

// threadSummary mirrors the thread list the dashboard shows.
type threadSummary struct {
	ID       string `json:"id"`
	Region   string `json:"region"`
	Messages int    `json:"messages"`
	First    string `json:"first"`
	Last     string `json:"last"`
}

func summarize(t conv.Thread) threadSummary {
	return threadSummary{
		ID:       t.ID,
		Region:   t.Region(),
		Messages: len(t.Messages),
		First:    t.First().UTC().Format(time.RFC3339),
		Last:     t.Last().UTC().Format(time.RFC3339),
	}
}

func (h *handlers) listThreads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	f, err := filterFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	v, err := filter.Apply(h.dataset(), f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid filter: %v", err)), nil
	}

	limit := limitArg(args, "limit", 20)
	offset := limitArg(args, "offset", 0)

	threads := v.Threads()
	total := len(threads)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	summaries := make([]threadSummary, 0, end-offset)
	for _, t := range threads[offset:end] {
		summaries = append(summaries, summarize(t))
	}

	resp := struct {
		Total   int             `json:"total"`
		Threads []threadSummary `json:"threads"`
	}{Total: total, Threads: summaries}

	return jsonResult(resp)
}

func (h *handlers) getThread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, _ := args["id"].(string)
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	t := h.dataset().Thread(id)
	if t == nil {
		return mcp.NewToolResultError(fmt.Sprintf("thread not found: %s", id)), nil
	}

	resp := struct {
		threadSummary
		Transcript []conv.Message `json:"transcript"`
	}{summarize(*t), t.Messages}

	return jsonResult(resp)
}

func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	keyword, _ := args["keyword"].(string)
	if keyword == "" {
		return mcp.NewToolResultError("keyword parameter is required"), nil
	}

	opts := search.Options{
		Keyword: keyword,
		Limit:   limitArg(args, "limit", search.DefaultLimit),
	}
	if v, ok := args["case_sensitive"].(bool); ok {
		opts.CaseSensitive = v
	}
	if v, ok := args["role"].(string); ok {
		opts.Role = conv.Role(v)
	}
	if v, ok := args["region"].(string); ok {
		opts.Region = v
	}

	res, err := search.Run(h.dataset(), opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return jsonResult(res)
}

// limitArg extracts a non-negative integer limit from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxLimit to prevent excessive
// result sets.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
