package table

import (
	"encoding/json"
	"fmt"

	"github.com/encql/encql/internal/schema"
)

func schemaToJSON(s schema.Schema) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("table: marshaling schema: %w", err)
	}
	return raw, nil
}

func schemaFromJSON(raw []byte) (schema.Schema, error) {
	var s schema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("table: unmarshaling schema: %w", err)
	}
	return s, nil
}
