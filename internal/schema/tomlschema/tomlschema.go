// Package tomlschema parses the TOML-authored form of an extended schema:
// an analyst-facing file format for the same column tree schema.Schema
// models in memory.
package tomlschema

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/encql/encql/internal/schema"
)

// schemaFile is the top-level TOML document: a bare array of columns under
// the "fields" key, each possibly recursive through its own "fields".
type schemaFile struct {
	Fields []tomlColumn `toml:"fields"`
}

type tomlColumn struct {
	Name                 string       `toml:"name"`
	Type                 string       `toml:"type"`
	Mode                 string       `toml:"mode"`
	Encrypt              string       `toml:"encrypt"`
	Related              string       `toml:"related"`
	SearchwordsSeparator string       `toml:"searchwords_separator"`
	MaxWordSequence      int          `toml:"max_word_sequence"`
	Fields               []tomlColumn `toml:"fields"`
}

// Parser reads TOML-authored extended schema files.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens the file at path and parses it as an extended schema.
func (p *Parser) ParseFile(path string) (schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tomlschema: open file %q: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads TOML content from r and returns the corresponding schema,
// validated before it is returned.
func (p *Parser) Parse(r io.Reader) (schema.Schema, error) {
	var sf schemaFile
	if _, err := toml.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("tomlschema: decode error: %w", err)
	}

	s := convertColumns(sf.Fields)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("tomlschema: %w", err)
	}
	return s, nil
}

func convertColumns(cols []tomlColumn) schema.Schema {
	out := make(schema.Schema, 0, len(cols))
	for _, c := range cols {
		out = append(out, convertColumn(c))
	}
	return out
}

func convertColumn(c tomlColumn) *schema.Column {
	col := &schema.Column{
		Name:                 c.Name,
		Type:                 schema.FieldType(c.Type),
		Mode:                 schema.Mode(c.Mode),
		Encrypt:              schema.EncryptMode(c.Encrypt),
		Related:              c.Related,
		SearchwordsSeparator: c.SearchwordsSeparator,
		MaxWordSequence:      c.MaxWordSequence,
	}
	if len(c.Fields) > 0 {
		col.Fields = convertColumns(c.Fields)
	}
	return col
}

// Write renders s back to its TOML-authored form, the inverse of Parse.
func Write(w io.Writer, s schema.Schema) error {
	sf := schemaFile{Fields: renderColumns(s)}
	return toml.NewEncoder(w).Encode(sf)
}

func renderColumns(s schema.Schema) []tomlColumn {
	out := make([]tomlColumn, 0, len(s))
	for _, c := range s {
		tc := tomlColumn{
			Name:                 c.Name,
			Type:                 string(c.Type),
			Mode:                 string(c.Mode),
			Encrypt:              string(c.Encrypt),
			Related:              c.Related,
			SearchwordsSeparator: c.SearchwordsSeparator,
			MaxWordSequence:      c.MaxWordSequence,
		}
		if len(c.Fields) > 0 {
			tc.Fields = renderColumns(c.Fields)
		}
		out = append(out, tc)
	}
	return out
}
