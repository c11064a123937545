// Package conv holds the conversation data model: messages loaded from a
// CSV export, grouped into threads.
package conv

import (
	"sort"
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one row of the export. Immutable once loaded.
type Message struct {
	ThreadID  string    `json:"thread_id"`
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Region    string    `json:"region"`
	Extra     string    `json:"extra,omitempty"`
}

// Thread is the set of messages sharing one thread ID, ordered by time.
type Thread struct {
	ID       string
	Messages []Message
}

// First returns the timestamp of the earliest message.
func (t *Thread) First() time.Time {
	if len(t.Messages) == 0 {
		return time.Time{}
	}
	return t.Messages[0].Timestamp
}

// Last returns the timestamp of the latest message.
func (t *Thread) Last() time.Time {
	if len(t.Messages) == 0 {
		return time.Time{}
	}
	return t.Messages[len(t.Messages)-1].Timestamp
}

// Duration returns the elapsed time between the first and last message.
func (t *Thread) Duration() time.Duration {
	return t.Last().Sub(t.First())
}

// Region returns the region of the thread's first message.
func (t *Thread) Region() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[0].Region
}

// Dataset is the loaded table. Messages are sorted by (thread, timestamp)
// and read-only for the rest of the session.
type Dataset struct {
	Messages []Message

	// Dropped counts rows discarded during load (unparsable timestamps).
	Dropped int

	threads []Thread
	byID    map[string]*Thread
}

// NewDataset builds a dataset from messages, sorting them by thread and
// time. Input order is preserved among equal timestamps within a thread.
func NewDataset(messages []Message) *Dataset {
	ds := &Dataset{Messages: messages}
	sort.SliceStable(ds.Messages, func(i, j int) bool {
		a, b := ds.Messages[i], ds.Messages[j]
		if a.ThreadID != b.ThreadID {
			return a.ThreadID < b.ThreadID
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	ds.index()
	return ds
}

func (ds *Dataset) index() {
	// Messages are sorted by thread, so each thread is a contiguous run.
	ds.threads = nil
	for i := 0; i < len(ds.Messages); {
		j := i
		for j < len(ds.Messages) && ds.Messages[j].ThreadID == ds.Messages[i].ThreadID {
			j++
		}
		ds.threads = append(ds.threads, Thread{
			ID:       ds.Messages[i].ThreadID,
			Messages: ds.Messages[i:j:j],
		})
		i = j
	}
	// Order threads by first activity, oldest first.
	sort.SliceStable(ds.threads, func(i, j int) bool {
		return ds.threads[i].First().Before(ds.threads[j].First())
	})
	ds.byID = make(map[string]*Thread, len(ds.threads))
	for i := range ds.threads {
		ds.byID[ds.threads[i].ID] = &ds.threads[i]
	}
}

// Threads returns all threads ordered by first activity.
func (ds *Dataset) Threads() []Thread {
	return ds.threads
}

// Thread returns the thread with the given ID, or nil.
func (ds *Dataset) Thread(id string) *Thread {
	return ds.byID[id]
}

// Regions returns the distinct regions in the dataset, sorted.
func (ds *Dataset) Regions() []string {
	seen := make(map[string]struct{})
	var regions []string
	for _, m := range ds.Messages {
		if _, ok := seen[m.Region]; !ok {
			seen[m.Region] = struct{}{}
			regions = append(regions, m.Region)
		}
	}
	sort.Strings(regions)
	return regions
}

// Span returns the earliest and latest timestamps in the dataset.
// Both are zero for an empty dataset.
func (ds *Dataset) Span() (first, last time.Time) {
	for _, m := range ds.Messages {
		if first.IsZero() || m.Timestamp.Before(first) {
			first = m.Timestamp
		}
		if m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	return first, last
}
