package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/schema/tomlschema"
)

// readSchemaFile parses an extended schema authored either as JSON (a bare
// array of columns, matching schema.Column's own json tags) or as TOML
// (internal/schema/tomlschema's "fields"-keyed format), chosen by path's
// extension.
func readSchemaFile(path string) (schema.Schema, error) {
	if strings.HasSuffix(strings.ToLower(path), ".toml") {
		return tomlschema.NewParser().ParseFile(path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	var s schema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing schema file %q: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("schema file %q: %w", path, err)
	}
	return s, nil
}
