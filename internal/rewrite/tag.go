package rewrite

import (
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/token"
)

// substituteAliases replaces every Field token naming a prior SELECT
// item's alias with that item's already-lowered postfix expression.
// Names that match no prior alias are left as plain field names, which
// tagEncrypted/assembly will then treat as ordinary columns (spec.md §9:
// only prior positions resolve). Rewrite rejects a reference to a later
// item's alias before this runs, so a forward reference never reaches here.
func substituteAliases(expr []token.Token, priors map[string][]token.Token) ([]token.Token, error) {
	out := make([]token.Token, 0, len(expr))
	for _, tok := range expr {
		field, ok := tok.(*token.Field)
		if !ok {
			out = append(out, tok)
			continue
		}
		prior, ok := priors[field.Name]
		if !ok {
			out = append(out, tok)
			continue
		}
		out = append(out, prior...)
	}
	return out, nil
}

// tagEncrypted replaces Field tokens naming an encrypted schema column
// with the matching Encrypted variant, carrying over the related tag for
// pseudonym columns.
func tagEncrypted(expr []token.Token, sch schema.Schema) ([]token.Token, error) {
	out := make([]token.Token, 0, len(expr))
	for _, tok := range expr {
		field, ok := tok.(*token.Field)
		if !ok {
			out = append(out, tok)
			continue
		}
		col := sch.Find(field.Name)
		if col == nil || !col.Encrypt.IsEncrypted() {
			out = append(out, tok)
			continue
		}
		kind, ok := encryptedKindFor(col.Encrypt)
		if !ok {
			out = append(out, tok)
			continue
		}
		enc := token.NewEncrypted(field.Name, kind)
		enc.Related = col.Related
		enc.SetAlias(field.Alias())
		out = append(out, enc)
	}
	return out, nil
}

func encryptedKindFor(mode schema.EncryptMode) (token.EncryptedKind, bool) {
	switch mode {
	case schema.EncryptProbabilistic, schema.EncryptProbabilisticSearchwords:
		return token.EncryptedProbabilistic, true
	case schema.EncryptPseudonym:
		return token.EncryptedPseudonym, true
	case schema.EncryptSearchwords:
		return token.EncryptedSearchwords, true
	case schema.EncryptHomomorphicInt:
		return token.EncryptedHomomorphicInt, true
	case schema.EncryptHomomorphicFloat:
		return token.EncryptedHomomorphicFloat, true
	default:
		return 0, false
	}
}
