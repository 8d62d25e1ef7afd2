package rewrite

import "github.com/encql/encql/internal/schema"

// rewriteGroupBy resolves each GROUP BY name against the select list's own
// output aliases first (so grouping by an unencrypted composite's alias or
// a selected encrypted column's alias works), falling back to the schema
// directly for a column that was not selected. Only pseudonym columns may
// be grouped by among encrypted kinds, since only their ciphertext
// preserves equality.
func rewriteGroupBy(names []string, ctx *Context, serverNameOf map[string]string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if mapped, ok := serverNameOf[name]; ok {
			out = append(out, mapped)
			continue
		}
		col := ctx.Schema.Find(name)
		if col == nil {
			out = append(out, name)
			continue
		}
		if !col.Encrypt.IsEncrypted() {
			out = append(out, name)
			continue
		}
		if col.Encrypt != schema.EncryptPseudonym {
			return nil, invalidQuery("cannot GROUP BY non-deterministically encrypted column " + name)
		}
		wireCol := wireColumnName(schema.PrefixPseudonym, name)
		if ctx.Manifest != nil {
			out = append(out, ctx.Manifest.Alias(wireCol))
			continue
		}
		out = append(out, wireCol)
	}
	return out, nil
}
