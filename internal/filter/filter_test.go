package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/convolab/convoscope/internal/conv"
)

func ts(day, hour int) time.Time {
	return time.Date(2025, 7, day, hour, 30, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(i int) *int              { return &i }

func testDataset() *conv.Dataset {
	return conv.NewDataset([]conv.Message{
		{ThreadID: "a", Timestamp: ts(9, 10), Role: conv.RoleUser, Text: "Which lipstick lasts longest?", Region: "AE"},
		{ThreadID: "a", Timestamp: ts(9, 10), Role: conv.RoleAssistant, Text: "Matte formulas hold best.", Region: "AE"},
		{ThreadID: "a", Timestamp: ts(9, 11), Role: conv.RoleUser, Text: "thanks, very helpful", Region: "AE"},
		{ThreadID: "b", Timestamp: ts(20, 22), Role: conv.RoleUser, Text: "my order failed", Region: "SA"},
		{ThreadID: "b", Timestamp: ts(20, 23), Role: conv.RoleAssistant, Text: "Sorry about that, let me check.", Region: "SA"},
	})
}

func TestApplyDateRangeScenario(t *testing.T) {
	// Thread a: 3 messages on Jul 9; thread b: 2 messages on Jul 20.
	ds := testDataset()
	v, err := Apply(ds, Filter{
		Start: timePtr(ts(8, 0)),
		End:   timePtr(ts(10, 0)),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := len(v.Threads()); got != 1 {
		t.Fatalf("threads = %d, want 1", got)
	}
	if v.Threads()[0].ID != "a" {
		t.Errorf("thread = %s, want a", v.Threads()[0].ID)
	}
	if got := len(v.Messages); got != 3 {
		t.Errorf("messages = %d, want 3", got)
	}
}

func TestApplyMinDate(t *testing.T) {
	ds := testDataset()
	ds.Dropped = 4

	out := ApplyMinDate(ds, ts(10, 0))
	if got := len(out.Messages); got != 2 {
		t.Errorf("messages = %d, want 2", got)
	}
	for _, m := range out.Messages {
		if m.ThreadID != "b" {
			t.Errorf("unexpected thread %s after floor", m.ThreadID)
		}
	}
	if out.Dropped != 4 {
		t.Errorf("Dropped = %d, want 4 carried from the load", out.Dropped)
	}
}

func TestApplySoundnessAndCompleteness(t *testing.T) {
	ds := testDataset()
	f := Filter{
		Regions: []string{"AE"},
		Keyword: "lipstick",
	}
	v, err := Apply(ds, f)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	inView := make(map[conv.Message]bool)
	for _, m := range v.Messages {
		inView[m] = true
		if !f.Matches(m) {
			t.Errorf("message in view fails predicate: %q", m.Text)
		}
	}
	for _, m := range ds.Messages {
		if f.Matches(m) && !inView[m] {
			t.Errorf("matching message missing from view: %q", m.Text)
		}
	}
}

func TestApplyPredicates(t *testing.T) {
	ds := testDataset()
	tests := []struct {
		name     string
		f        Filter
		wantMsgs int
	}{
		{"no predicates", Filter{}, 5},
		{"region", Filter{Regions: []string{"SA"}}, 2},
		{"region case-insensitive", Filter{Regions: []string{"sa"}}, 2},
		{"keyword case-insensitive", Filter{Keyword: "MATTE"}, 1},
		{"role", Filter{Role: conv.RoleUser}, 3},
		{"hour range", Filter{HourStart: intPtr(9), HourEnd: intPtr(12)}, 3},
		{"hour range wraps midnight", Filter{HourStart: intPtr(22), HourEnd: intPtr(2)}, 2},
		{"combined AND", Filter{Regions: []string{"AE"}, Role: conv.RoleUser}, 2},
		{"empty result is valid", Filter{Keyword: "no-such-word"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Apply(ds, tt.f)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if len(v.Messages) != tt.wantMsgs {
				t.Errorf("messages = %d, want %d", len(v.Messages), tt.wantMsgs)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       Filter
		wantErr bool
	}{
		{"empty", Filter{}, false},
		{"valid range", Filter{Start: timePtr(ts(1, 0)), End: timePtr(ts(2, 0))}, false},
		{"same day", Filter{Start: timePtr(ts(1, 9)), End: timePtr(ts(1, 1))}, false},
		{"reversed range", Filter{Start: timePtr(ts(5, 0)), End: timePtr(ts(1, 0))}, true},
		{"hour too large", Filter{HourStart: intPtr(0), HourEnd: intPtr(24)}, true},
		{"negative hour", Filter{HourStart: intPtr(-1), HourEnd: intPtr(5)}, true},
		{"half-open hours", Filter{HourStart: intPtr(5)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if tt.wantErr && !errors.Is(err, ErrFilter) {
				t.Errorf("Validate() = %v, want ErrFilter", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestApplyInvalidFilter(t *testing.T) {
	_, err := Apply(testDataset(), Filter{Start: timePtr(ts(5, 0)), End: timePtr(ts(1, 0))})
	if !errors.Is(err, ErrFilter) {
		t.Errorf("Apply() error = %v, want ErrFilter", err)
	}
}

func TestViewThreadLookup(t *testing.T) {
	v, err := Apply(testDataset(), Filter{Regions: []string{"AE"}})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if th := v.Thread("a"); th == nil || len(th.Messages) != 3 {
		t.Errorf("Thread(a) = %+v, want 3 messages", th)
	}
	if th := v.Thread("b"); th != nil {
		t.Errorf("Thread(b) = %+v, want nil", th)
	}
}
