package conv

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrDataFormat marks a CSV that cannot be loaded: missing columns or
// an unreadable stream. Rows with unparsable timestamps are not fatal;
// they are dropped and counted in Dataset.Dropped.
var ErrDataFormat = eris.New("malformed conversation export")

// Export column order. The file is headerless, matching the product's
// export job; a leading header row naming thread_id is tolerated.
// Columns past region (the "extra" field) are optional.
const minColumns = 5

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadFile loads a conversation export from a CSV file on disk.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataFormat, "open %s: %v", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a conversation export from r. The expected columns are
// thread_id, timestamp, role, message, region, [extra]. An empty input
// yields an empty dataset, not an error.
func Load(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row width validated per record
	cr.LazyQuotes = true

	var (
		messages []Message
		dropped  int
		first    = true
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(ErrDataFormat, "read csv: %v", err)
		}
		if first {
			first = false
			if isHeaderRow(record) {
				continue
			}
		}
		if len(record) < minColumns {
			return nil, eris.Wrapf(ErrDataFormat, "row has %d columns, want at least %d", len(record), minColumns)
		}

		ts, ok := parseTimestamp(record[1])
		if !ok {
			dropped++
			continue
		}

		m := Message{
			ThreadID:  strings.TrimSpace(record[0]),
			Timestamp: ts,
			Role:      Role(strings.ToLower(strings.TrimSpace(record[2]))),
			Text:      record[3],
			Region:    strings.TrimSpace(record[4]),
		}
		if len(record) > minColumns {
			m.Extra = record[5]
		}
		messages = append(messages, m)
	}

	ds := NewDataset(messages)
	ds.Dropped = dropped
	return ds, nil
}

// isHeaderRow reports whether the first record is a header instead of data.
func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "thread_id")
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
