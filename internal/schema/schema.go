// Package schema implements the extended schema model: the JSON/TOML
// authored column tree analysts write against, its validation rules, and
// the rewrite into the basic (ciphertext-prefixed) schema the server table
// is actually created with.
package schema

// FieldType is the declared scalar type of a leaf column.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeInteger   FieldType = "integer"
	TypeFloat     FieldType = "float"
	TypeBoolean   FieldType = "boolean"
	TypeTimestamp FieldType = "timestamp"
	TypeRecord    FieldType = "record"
)

// Mode is the cardinality of a column, mirroring the columnar table
// service's own nullable/required/repeated distinction.
type Mode string

const (
	ModeNullable Mode = "nullable"
	ModeRequired Mode = "required"
	ModeRepeated Mode = "repeated"
)

// EncryptMode names the cryptographic treatment applied to a leaf column.
type EncryptMode string

const (
	EncryptNone                     EncryptMode = "none"
	EncryptProbabilistic            EncryptMode = "probabilistic"
	EncryptPseudonym                EncryptMode = "pseudonym"
	EncryptSearchwords              EncryptMode = "searchwords"
	EncryptProbabilisticSearchwords EncryptMode = "probabilistic_searchwords"
	EncryptHomomorphicInt           EncryptMode = "homomorphic_int"
	EncryptHomomorphicFloat         EncryptMode = "homomorphic_float"
)

// Column is one node of the extended schema tree. Record columns carry no
// encryption of their own; only leaf columns do.
type Column struct {
	Name    string      `json:"name" toml:"name"`
	Type    FieldType   `json:"type" toml:"type"`
	Mode    Mode        `json:"mode,omitempty" toml:"mode,omitempty"`
	Encrypt EncryptMode `json:"encrypt,omitempty" toml:"encrypt,omitempty"`
	// Related is an arbitrary domain tag (pseudonym columns only). Columns
	// across any number of tables that share the same tag encrypt equal
	// plaintexts to equal ciphertexts, enabling equality joins/filters
	// across tables without widening a single column's own key scope.
	Related string `json:"related,omitempty" toml:"related,omitempty"`
	// SearchwordsSeparator splits a searchwords/probabilistic_searchwords
	// cell into words before indexing. Defaults to whitespace.
	SearchwordsSeparator string `json:"searchwords_separator,omitempty" toml:"searchwords_separator,omitempty"`
	// MaxWordSequence bounds how many contiguous words are indexed as one
	// phrase token (searchwords/probabilistic_searchwords only). Defaults
	// to 5.
	MaxWordSequence int       `json:"max_word_sequence,omitempty" toml:"max_word_sequence,omitempty"`
	Fields          []*Column `json:"fields,omitempty" toml:"fields,omitempty"`
}

// DefaultMaxWordSequence is applied when a searchwords column leaves
// MaxWordSequence unset.
const DefaultMaxWordSequence = 5

// EffectiveMaxWordSequence returns c.MaxWordSequence, or
// DefaultMaxWordSequence if it was left unset.
func (c *Column) EffectiveMaxWordSequence() int {
	if c.MaxWordSequence <= 0 {
		return DefaultMaxWordSequence
	}
	return c.MaxWordSequence
}

// Schema is an ordered top-level column list, i.e. a table's extended
// schema.
type Schema []*Column

// Find returns the column addressed by a dotted path such as
// "citiesLived.job.position", or nil if no such column exists.
func (s Schema) Find(dottedPath string) *Column {
	return findIn(s, splitDotted(dottedPath))
}

func findIn(cols []*Column, parts []string) *Column {
	if len(parts) == 0 {
		return nil
	}
	for _, c := range cols {
		if c.Name != parts[0] {
			continue
		}
		if len(parts) == 1 {
			return c
		}
		return findIn(c.Fields, parts[1:])
	}
	return nil
}

func splitDotted(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

// IsEncrypted reports whether mode is any cipher role other than none.
func (m EncryptMode) IsEncrypted() bool { return m != "" && m != EncryptNone }

// RequiresString reports whether mode can only be applied to string leaves.
func (m EncryptMode) RequiresString() bool {
	return m == EncryptProbabilistic || m == EncryptPseudonym ||
		m == EncryptSearchwords || m == EncryptProbabilisticSearchwords
}
