// Package manifest tracks the per-query mapping between user-facing column
// names and the stable, collision-resistant aliases the rewriter assigns
// them so the server's result set can be mapped back onto what the user
// actually asked for.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Manifest accumulates alias assignments for the lifetime of one query.
type Manifest struct {
	queryID string
	// aliasToName maps an alias to the single canonical user-facing column
	// name it stands for. When several distinct source expressions would
	// otherwise collide on the same alias, the extras besides the first
	// registrant are recorded in extras instead of overwriting this map.
	aliasToName map[string]string
	extras      map[string][]string
	// RecordsWritten holds a record-count response statistic for the query.
	// No code in this module sets it; it stays zero unless a caller does.
	RecordsWritten int64
}

// New creates a Manifest scoped to queryID, which should be unique per
// query (e.g. a freshly generated UUID) so aliases never collide across
// independent queries sharing a connection.
func New(queryID string) *Manifest {
	return &Manifest{
		queryID:     queryID,
		aliasToName: make(map[string]string),
		extras:      make(map[string][]string),
	}
}

// Alias returns the stable alias for columnName, registering a new one on
// first use. If a different name already holds this alias's underlying
// hash (which cannot happen for distinct inputs since the hash is keyed on
// the name itself) this would be a collision; in practice each distinct
// name gets its own hash and alias deterministically.
func (m *Manifest) Alias(columnName string) string {
	alias := m.hashAlias(columnName)
	if existing, ok := m.aliasToName[alias]; ok {
		if existing != columnName {
			m.extras[alias] = append(m.extras[alias], columnName)
		}
		return alias
	}
	m.aliasToName[alias] = columnName
	return alias
}

// Name resolves an alias produced by this manifest back to its primary
// user-facing column name.
func (m *Manifest) Name(alias string) (string, bool) {
	name, ok := m.aliasToName[alias]
	return name, ok
}

// Extras returns any additional column names that collided onto alias
// beyond its primary name.
func (m *Manifest) Extras(alias string) []string {
	return m.extras[alias]
}

func (m *Manifest) hashAlias(columnName string) string {
	sum := sha256.Sum256([]byte(m.queryID + columnName))
	return "HP" + hex.EncodeToString(sum[:])
}

// String renders the manifest for diagnostics.
func (m *Manifest) String() string {
	return fmt.Sprintf("manifest(query=%s, %d aliases)", m.queryID, len(m.aliasToName))
}
