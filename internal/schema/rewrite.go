package schema

import "strings"

// RewriteSchema renames every encrypted leaf in an already-validated
// extended schema into its basic-schema form. Encrypted leaves never stay
// nested: each is hoisted into a flat, top-level column named by its full
// dotted path (dots replaced with PeriodReplacement) so a table service
// that would otherwise try to resolve dots as struct navigation sees one
// opaque identifier instead. Plaintext fields keep their original nesting.
// A record that held nothing but encrypted leaves disappears entirely once
// those leaves are hoisted away. probabilistic_searchwords expands into two
// hoisted columns (a searchwords hash column immediately followed by a
// probabilistic ciphertext column, in that order) so the server can both
// filter with CONTAINS and return the full decrypted value.
func RewriteSchema(s Schema) Schema {
	var nested []*Column
	var hoisted []*Column
	for _, col := range s {
		n, h := rewriteColumn(col, col.Name, col.Mode == ModeRepeated)
		nested = append(nested, n...)
		hoisted = append(hoisted, h...)
	}
	return append(nested, hoisted...)
}

func rewriteColumn(col *Column, path string, repeatedAncestor bool) (nested []*Column, hoisted []*Column) {
	if col.Type == TypeRecord {
		childRepeated := repeatedAncestor || col.Mode == ModeRepeated
		var childNested []*Column
		for _, f := range col.Fields {
			n, h := rewriteColumn(f, path+"."+f.Name, childRepeated)
			childNested = append(childNested, n...)
			hoisted = append(hoisted, h...)
		}
		if len(childNested) == 0 {
			// Every leaf under this record was encrypted and hoisted away;
			// the record itself carries nothing left to keep nested.
			return nil, hoisted
		}
		rewritten := *col
		rewritten.Fields = childNested
		return []*Column{&rewritten}, hoisted
	}

	switch col.Encrypt {
	case EncryptNone, "":
		c := *col
		return []*Column{&c}, nil
	case EncryptProbabilistic:
		return nil, []*Column{flatRenamed(col, path, PrefixProbabilistic, repeatedAncestor)}
	case EncryptPseudonym:
		return nil, []*Column{flatRenamed(col, path, PrefixPseudonym, repeatedAncestor)}
	case EncryptSearchwords:
		return nil, []*Column{flatRenamed(col, path, PrefixSearchwords, repeatedAncestor)}
	case EncryptHomomorphicInt:
		return nil, []*Column{flatRenamed(col, path, PrefixHomomorphicInt, repeatedAncestor)}
	case EncryptHomomorphicFloat:
		return nil, []*Column{flatRenamed(col, path, PrefixHomomorphicFloat, repeatedAncestor)}
	case EncryptProbabilisticSearchwords:
		// The searchwords twin stores one string per row: b64(iv) plus the
		// keyed phrase hashes, matched via CONTAINS substring search in
		// rewrite.rewriteCondition. It carries no mode of its own beyond
		// the original column's nullability.
		hashed := flatRenamed(col, path, PrefixSearchwords, repeatedAncestor)
		probabilistic := flatRenamed(col, path, PrefixProbabilistic, repeatedAncestor)
		return nil, []*Column{hashed, probabilistic}
	default:
		c := *col
		return []*Column{&c}, nil
	}
}

// flatRenamed produces the hoisted, top-level form of an encrypted leaf.
// repeatedAncestor marks that col sits under (or is itself) a repeated
// record, so the flattened column must carry one ciphertext per repetition
// even though the leaf's own declared mode says otherwise.
func flatRenamed(col *Column, path, prefix string, repeatedAncestor bool) *Column {
	c := *col
	c.Name = prefix + strings.ReplaceAll(path, ".", PeriodReplacement)
	c.Encrypt = EncryptNone
	c.Type = TypeString // every ciphertext is stored as base64 text, regardless of plaintext type
	if repeatedAncestor {
		c.Mode = ModeRepeated
	}
	return &c
}
