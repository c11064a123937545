package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/metrics"
	"github.com/convolab/convoscope/internal/search"
)

// toolHandler is the function signature for MCP tool handler methods.
type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// callToolDirect invokes a handler directly with the given arguments and returns the raw result.
func callToolDirect(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", r.Content[0])
	}
	return tc.Text
}

// runTool invokes a handler, asserts no error, and unmarshals the JSON result into T.
func runTool[T any](t *testing.T, name string, fn toolHandler, args map[string]any) T {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, r))
	}
	var out T
	if err := json.Unmarshal([]byte(resultText(t, r)), &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out
}

// runToolExpectError invokes a handler and asserts it returns an error result.
func runToolExpectError(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if !r.IsError {
		t.Fatal("expected error result")
	}
	return r
}

func testHandlers() *handlers {
	day := time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC)
	ds := conv.NewDataset([]conv.Message{
		{ThreadID: "t1", Timestamp: day.Add(10 * time.Hour), Role: conv.RoleUser, Text: "best sunscreen?", Region: "AE"},
		{ThreadID: "t1", Timestamp: day.Add(10*time.Hour + 5*time.Second), Role: conv.RoleAssistant, Text: "SPF 50, reapply often.", Region: "AE"},
		{ThreadID: "t2", Timestamp: day.Add(26 * time.Hour), Role: conv.RoleUser, Text: "lipstick shades", Region: "SA"},
		{ThreadID: "t2", Timestamp: day.Add(26*time.Hour + 8*time.Second), Role: conv.RoleAssistant, Text: "Try coral tones.", Region: "SA"},
	})
	return &handlers{dataset: func() *conv.Dataset { return ds }, latencyThreshold: 30}
}

func TestGetStats(t *testing.T) {
	h := testHandlers()

	t.Run("unfiltered", func(t *testing.T) {
		s := runTool[metrics.Snapshot](t, ToolGetStats, h.getStats, map[string]any{})
		if s.Conversations != 2 || s.Messages != 4 {
			t.Errorf("stats = %d/%d, want 2/4", s.Conversations, s.Messages)
		}
	})

	t.Run("region filter", func(t *testing.T) {
		s := runTool[metrics.Snapshot](t, ToolGetStats, h.getStats, map[string]any{"region": "AE"})
		if s.Conversations != 1 {
			t.Errorf("conversations = %d, want 1", s.Conversations)
		}
	})

	t.Run("date filter", func(t *testing.T) {
		s := runTool[metrics.Snapshot](t, ToolGetStats, h.getStats, map[string]any{"start": "2025-07-10"})
		if s.Conversations != 1 || s.Messages != 2 {
			t.Errorf("stats = %d/%d, want 1/2", s.Conversations, s.Messages)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		runToolExpectError(t, ToolGetStats, h.getStats, map[string]any{"start": "07/10/2025"})
	})

	t.Run("reversed range", func(t *testing.T) {
		runToolExpectError(t, ToolGetStats, h.getStats, map[string]any{
			"start": "2025-07-20", "end": "2025-07-01",
		})
	})
}

func TestGetLatency(t *testing.T) {
	h := testHandlers()

	stats := runTool[metrics.LatencyStats](t, ToolGetLatency, h.getLatency, map[string]any{"threshold": float64(6)})
	if stats.Count != 2 {
		t.Errorf("count = %d, want 2", stats.Count)
	}
	if stats.OverThreshold != 1 {
		t.Errorf("over threshold = %d, want 1", stats.OverThreshold)
	}
}

func TestListThreads(t *testing.T) {
	h := testHandlers()

	type resp struct {
		Total   int             `json:"total"`
		Threads []threadSummary `json:"threads"`
	}

	t.Run("all", func(t *testing.T) {
		r := runTool[resp](t, ToolListThreads, h.listThreads, map[string]any{})
		if r.Total != 2 || len(r.Threads) != 2 {
			t.Errorf("total = %d, threads = %d", r.Total, len(r.Threads))
		}
	})

	t.Run("pagination", func(t *testing.T) {
		r := runTool[resp](t, ToolListThreads, h.listThreads, map[string]any{
			"limit": float64(1), "offset": float64(1),
		})
		if r.Total != 2 || len(r.Threads) != 1 {
			t.Fatalf("total = %d, threads = %d", r.Total, len(r.Threads))
		}
		if r.Threads[0].ID != "t2" {
			t.Errorf("thread = %s, want t2", r.Threads[0].ID)
		}
	})
}

func TestGetThread(t *testing.T) {
	h := testHandlers()

	type resp struct {
		ID         string         `json:"id"`
		Transcript []conv.Message `json:"transcript"`
	}

	r := runTool[resp](t, ToolGetThread, h.getThread, map[string]any{"id": "t1"})
	if r.ID != "t1" || len(r.Transcript) != 2 {
		t.Errorf("thread = %s with %d messages", r.ID, len(r.Transcript))
	}

	runToolExpectError(t, ToolGetThread, h.getThread, map[string]any{"id": "missing"})
	runToolExpectError(t, ToolGetThread, h.getThread, map[string]any{})
}

func TestSearchMessages(t *testing.T) {
	h := testHandlers()

	res := runTool[search.Result](t, ToolSearchMessages, h.searchMessages, map[string]any{"keyword": "sunscreen"})
	if res.Total != 1 {
		t.Errorf("total = %d, want 1", res.Total)
	}

	runToolExpectError(t, ToolSearchMessages, h.searchMessages, map[string]any{})
}

func TestLimitArg(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		def  int
		want int
	}{
		{"missing uses default", map[string]any{}, 20, 20},
		{"valid value", map[string]any{"limit": float64(5)}, 20, 5},
		{"negative clamps to zero", map[string]any{"limit": float64(-1)}, 20, 0},
		{"huge clamps to max", map[string]any{"limit": float64(1e9)}, 20, maxLimit},
		{"wrong type uses default", map[string]any{"limit": "ten"}, 20, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := limitArg(tt.args, "limit", tt.def); got != tt.want {
				t.Errorf("limitArg() = %d, want %d", got, tt.want)
			}
		})
	}
}
