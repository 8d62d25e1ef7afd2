package table

import (
	"fmt"
	"time"

	"github.com/encql/encql/internal/errs"
)

// layouts are the timestamp formats the load pipeline accepts from a CSV
// or NDJSON cell, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeTimestamp parses a timestamp cell and returns it as epoch
// microseconds, the form the table service stores timestamp columns in.
func NormalizeTimestamp(s string) (int64, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMicro(), nil
		}
	}
	return 0, fmt.Errorf("table: NormalizeTimestamp: %w", errs.FormatError{Reason: fmt.Sprintf("unrecognized timestamp %q", s)})
}

// NowMicros returns the current time as epoch microseconds, the unit every
// stored timestamp column uses. Table creation times are kept in epoch
// milliseconds instead (see ID).
func NowMicros(now time.Time) int64 {
	return now.UnixMicro()
}
