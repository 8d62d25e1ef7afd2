package load

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/encql/encql/internal/errs"
)

// ReadNDJSON parses one JSON object per line and flattens each into a
// dotted-path cell map matching the nested extended schema.
func ReadNDJSON(r io.Reader) ([]map[string]any, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var rows []map[string]any
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, fmt.Errorf("load: ReadNDJSON: line %d: %w", lineNo, errs.FormatError{Reason: err.Error()})
		}
		rows = append(rows, Flatten(obj))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load: ReadNDJSON: %w", errs.IOError{Err: err})
	}
	return rows, nil
}
