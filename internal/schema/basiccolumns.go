package schema

// BasicColumn is one flat leaf of a rewritten schema: either a hoisted
// encrypted column or a plaintext leaf still nested under its record
// path. Name always gives the path a TableService should create a
// physical column under (dots already replaced for encrypted leaves;
// callers flattening plaintext leaves for a column-per-leaf backend
// should apply the same PeriodReplacement themselves).
type BasicColumn struct {
	Name     string
	Type     FieldType
	Required bool
}

// BasicColumns flattens an already-rewritten schema (the output of
// RewriteSchema) into the leaf list a TableService needs to create or
// widen a table's physical columns.
func BasicColumns(rewritten Schema) []BasicColumn {
	var out []BasicColumn
	for _, c := range rewritten {
		collectBasicColumns(c, c.Name, &out)
	}
	return out
}

func collectBasicColumns(c *Column, path string, out *[]BasicColumn) {
	if c.Type == TypeRecord {
		for _, f := range c.Fields {
			collectBasicColumns(f, path+"."+f.Name, out)
		}
		return
	}
	*out = append(*out, BasicColumn{
		Name:     path,
		Type:     c.Type,
		Required: c.Mode == ModeRequired,
	})
}
