// Package filter narrows a loaded dataset to the messages matching a
// predicate configuration. All active predicates must hold (logical AND).
package filter

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/convolab/convoscope/internal/conv"
)

// ErrFilter marks an invalid predicate configuration, e.g. a reversed
// date range or an hour outside 0-23.
var ErrFilter = eris.New("invalid filter")

// Filter is a predicate configuration. Zero-value fields are inactive.
type Filter struct {
	// Start and End bound the date range, inclusive on both ends.
	// Only the date part matters; time-of-day is handled separately.
	Start, End *time.Time

	// Regions allows only the listed regions. Empty means all.
	Regions []string

	// Keyword matches message text, case-insensitive substring.
	Keyword string

	// Role restricts to messages from one sender role.
	Role conv.Role

	// HourStart and HourEnd bound the hour of day, inclusive. A range
	// that wraps midnight (e.g. 22..2) is allowed.
	HourStart, HourEnd *int
}

// Validate checks the configuration without applying it.
func (f Filter) Validate() error {
	if f.Start != nil && f.End != nil {
		if dateOf(*f.Start).After(dateOf(*f.End)) {
			return eris.Wrapf(ErrFilter, "start %s after end %s",
				f.Start.Format("2006-01-02"), f.End.Format("2006-01-02"))
		}
	}
	for _, h := range []*int{f.HourStart, f.HourEnd} {
		if h != nil && (*h < 0 || *h > 23) {
			return eris.Wrapf(ErrFilter, "hour %d outside 0-23", *h)
		}
	}
	if (f.HourStart == nil) != (f.HourEnd == nil) {
		return eris.Wrap(ErrFilter, "time-of-day range needs both start and end hours")
	}
	return nil
}

// ApplyMinDate rebuilds the dataset without messages before min, keeping
// the dropped-row count from the original load.
func ApplyMinDate(ds *conv.Dataset, min time.Time) *conv.Dataset {
	v, err := Apply(ds, Filter{Start: &min})
	if err != nil {
		// A start-only filter always validates.
		return ds
	}
	out := conv.NewDataset(v.Messages)
	out.Dropped = ds.Dropped
	return out
}

// View is the subset of a dataset matching a filter. It is recomputed on
// every filter change and never persisted.
type View struct {
	Messages []conv.Message

	threads []conv.Thread
	byID    map[string]*conv.Thread
}

// Apply evaluates f against ds and returns the matching view. An empty
// result is valid, not an error.
func Apply(ds *conv.Dataset, f Filter) (*View, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var matched []conv.Message
	for _, m := range ds.Messages {
		if f.matches(m) {
			matched = append(matched, m)
		}
	}

	v := &View{Messages: matched}
	v.index()
	return v, nil
}

// Matches reports whether a single message satisfies every active predicate.
func (f Filter) Matches(m conv.Message) bool {
	if err := f.Validate(); err != nil {
		return false
	}
	return f.matches(m)
}

func (f Filter) matches(m conv.Message) bool {
	if f.Start != nil && dateOf(m.Timestamp).Before(dateOf(*f.Start)) {
		return false
	}
	if f.End != nil && dateOf(m.Timestamp).After(dateOf(*f.End)) {
		return false
	}
	if len(f.Regions) > 0 && !containsFold(f.Regions, m.Region) {
		return false
	}
	if f.Keyword != "" && !strings.Contains(strings.ToLower(m.Text), strings.ToLower(f.Keyword)) {
		return false
	}
	if f.Role != "" && m.Role != f.Role {
		return false
	}
	if f.HourStart != nil && f.HourEnd != nil {
		h := m.Timestamp.Hour()
		lo, hi := *f.HourStart, *f.HourEnd
		if lo <= hi {
			if h < lo || h > hi {
				return false
			}
		} else { // wraps midnight
			if h < lo && h > hi {
				return false
			}
		}
	}
	return true
}

func (v *View) index() {
	// Messages keep dataset order: sorted by thread, then time.
	v.threads = nil
	for i := 0; i < len(v.Messages); {
		j := i
		for j < len(v.Messages) && v.Messages[j].ThreadID == v.Messages[i].ThreadID {
			j++
		}
		v.threads = append(v.threads, conv.Thread{
			ID:       v.Messages[i].ThreadID,
			Messages: v.Messages[i:j:j],
		})
		i = j
	}
	v.byID = make(map[string]*conv.Thread, len(v.threads))
	for i := range v.threads {
		v.byID[v.threads[i].ID] = &v.threads[i]
	}
}

// Threads returns the threads with at least one matching message.
func (v *View) Threads() []conv.Thread {
	return v.threads
}

// Thread returns the view's slice of the given thread, or nil.
func (v *View) Thread(id string) *conv.Thread {
	return v.byID[id]
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
