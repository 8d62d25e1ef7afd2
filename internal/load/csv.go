package load

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/encql/encql/internal/errs"
)

// ReadCSV parses a CSV file whose header row names leaf columns by their
// dotted schema path (e.g. "citiesLived.job.position" for a nested record
// field), and returns one dotted-path cell map per data row.
func ReadCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("load: ReadCSV: reading header: %w", errs.FormatError{Reason: err.Error()})
	}

	var rows []map[string]any
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load: ReadCSV: %w", errs.FormatError{Reason: err.Error()})
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("load: ReadCSV: %w", errs.FormatError{
				Reason: fmt.Sprintf("row has %d fields, header has %d", len(record), len(header)),
			})
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
