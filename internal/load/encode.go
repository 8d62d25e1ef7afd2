package load

import (
	"fmt"

	"github.com/encql/encql/internal/cipher"
	"github.com/encql/encql/internal/rewrite"
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/token"
)

// Loader turns one input row (a dotted-path cell map from ReadCSV/ReadNDJSON)
// into a wire-ready row keyed the same way schema.RewriteSchema names the
// table's columns: plaintext leaves keep their dotted path, encrypted leaves
// are replaced by their ciphertext(s) under the flat, hoisted wire name.
type Loader struct {
	ctx *rewrite.Context
	// Shuffle permutes a searchwords hash list before it is joined onto the
	// wire; nil leaves natural order, which would otherwise leak the
	// indexed phrase's position within the cell.
	Shuffle func([]string)
}

func NewLoader(ctx *rewrite.Context) *Loader {
	return &Loader{ctx: ctx}
}

// EncodeRow walks the extended schema leaf by leaf, encrypting each cell
// present in row and returning the row the table service insert expects.
func (l *Loader) EncodeRow(row map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	for _, col := range l.ctx.Schema {
		if err := l.encodeColumn(col, col.Name, row, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *Loader) encodeColumn(col *schema.Column, path string, row map[string]any, out map[string]any) error {
	if col.Type == schema.TypeRecord {
		for _, f := range col.Fields {
			if err := l.encodeColumn(f, path+"."+f.Name, row, out); err != nil {
				return err
			}
		}
		return nil
	}

	raw, present := row[path]
	if s, ok := raw.(string); ok && s == "" {
		// An empty cell, CSV or JSON, is how both formats spell a null leaf.
		raw, present = nil, false
	}
	if !present || raw == nil {
		if col.Mode != schema.ModeNullable && col.Mode != schema.ModeRepeated {
			return fmt.Errorf("load: column %q: missing required value", path)
		}
		return l.encodeNullLeaf(col, path, out)
	}

	switch col.Encrypt {
	case schema.EncryptNone, "":
		v, err := typedValue(col.Type, raw)
		if err != nil {
			return fmt.Errorf("load: column %q: %w", path, err)
		}
		out[path] = v
		return nil
	case schema.EncryptProbabilistic:
		return l.encodeProbabilistic(path, raw, out)
	case schema.EncryptPseudonym:
		return l.encodePseudonym(col, path, raw, out)
	case schema.EncryptSearchwords:
		return l.encodeSearchwords(col, path, raw, out)
	case schema.EncryptProbabilisticSearchwords:
		if err := l.encodeProbabilistic(path, raw, out); err != nil {
			return err
		}
		return l.encodeSearchwords(col, path, raw, out)
	case schema.EncryptHomomorphicInt:
		return l.encodeHomomorphicInt(path, raw, out)
	case schema.EncryptHomomorphicFloat:
		return l.encodeHomomorphicFloat(path, raw, out)
	default:
		return fmt.Errorf("load: column %q: unknown encrypt mode %q", path, col.Encrypt)
	}
}

// encodeNullLeaf fills in the wire cell(s) a leaf owns with nil, so an
// omitted nullable column still produces the right key for every column
// the rewritten schema assigned it (two, for probabilistic_searchwords).
func (l *Loader) encodeNullLeaf(col *schema.Column, path string, out map[string]any) error {
	switch col.Encrypt {
	case schema.EncryptNone, "":
		out[path] = nil
	case schema.EncryptProbabilistic:
		out[rewrite.WireColumnName(schema.PrefixProbabilistic, path)] = nil
	case schema.EncryptPseudonym:
		out[rewrite.WireColumnName(schema.PrefixPseudonym, path)] = nil
	case schema.EncryptSearchwords:
		out[rewrite.WireColumnName(schema.PrefixSearchwords, path)] = nil
	case schema.EncryptProbabilisticSearchwords:
		out[rewrite.WireColumnName(schema.PrefixProbabilistic, path)] = nil
		out[rewrite.WireColumnName(schema.PrefixSearchwords, path)] = nil
	case schema.EncryptHomomorphicInt:
		out[rewrite.WireColumnName(schema.PrefixHomomorphicInt, path)] = nil
	case schema.EncryptHomomorphicFloat:
		out[rewrite.WireColumnName(schema.PrefixHomomorphicFloat, path)] = nil
	}
	return nil
}

func encryptedRef(path string, kind token.EncryptedKind, related string) *token.Encrypted {
	enc := token.NewEncrypted(path, kind)
	enc.Related = related
	return enc
}

func (l *Loader) encodeProbabilistic(path string, raw any, out map[string]any) error {
	enc := encryptedRef(path, token.EncryptedProbabilistic, "")
	ct, err := l.ctx.ProbabilisticCipher(enc).Encrypt(cellToString(raw))
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	out[rewrite.WireColumnName(schema.PrefixProbabilistic, path)] = ct
	return nil
}

func (l *Loader) encodePseudonym(col *schema.Column, path string, raw any, out map[string]any) error {
	enc := encryptedRef(path, token.EncryptedPseudonym, col.Related)
	ct, err := l.ctx.PseudonymCipher(enc).Encrypt(cellToString(raw))
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	out[rewrite.WireColumnName(schema.PrefixPseudonym, path)] = ct
	return nil
}

func (l *Loader) encodeSearchwords(col *schema.Column, path string, raw any, out map[string]any) error {
	iv, err := cipher.RandomIV()
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	enc := encryptedRef(path, token.EncryptedSearchwords, "")
	hashed, err := l.ctx.StringHash(enc).GetHashesForWordSubsequencesWithIv(
		path, cellToString(raw), iv, col.EffectiveMaxWordSequence(), l.Shuffle,
	)
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	out[rewrite.WireColumnName(schema.PrefixSearchwords, path)] = hashed
	return nil
}

func (l *Loader) encodeHomomorphicInt(path string, raw any, out map[string]any) error {
	enc := encryptedRef(path, token.EncryptedHomomorphicInt, "")
	c, err := l.ctx.HomomorphicIntCipher(enc)
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	n, err := cellToInt64(raw)
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	ct, err := c.Encrypt(n)
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	out[rewrite.WireColumnName(schema.PrefixHomomorphicInt, path)] = ct
	return nil
}

func (l *Loader) encodeHomomorphicFloat(path string, raw any, out map[string]any) error {
	enc := encryptedRef(path, token.EncryptedHomomorphicFloat, "")
	c, err := l.ctx.HomomorphicFloatCipher(enc)
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	f, err := cellToFloat64(raw)
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	ct, err := c.Encrypt(f)
	if err != nil {
		return fmt.Errorf("load: column %q: %w", path, err)
	}
	out[rewrite.WireColumnName(schema.PrefixHomomorphicFloat, path)] = ct
	return nil
}
