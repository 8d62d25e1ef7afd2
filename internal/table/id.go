package table

import "strconv"

// ID derives the identity a table's per-column keys are scoped to:
// name joined with its creation time in epoch milliseconds. Recreating a
// table under the same name after dropping it yields a new ID, and
// therefore entirely new column keys, since creationTimeMs changes.
func ID(name string, creationTimeMs int64) string {
	return name + "_" + strconv.FormatInt(creationTimeMs, 10)
}
