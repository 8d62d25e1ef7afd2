package mysqladapter

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/encql/encql/internal/transport"
)

// Query runs sql against MySQL. The string internal/rewrite produces can
// contain three BigQuery-only constructs no mainstream SQL engine (MySQL
// included) implements natively: a PAILLIER_SUM aggregate, the infix
// CONTAINS operator over a searchwords blob, and the approximate TOP
// aggregate. translate rewrites each into either a MySQL-native
// equivalent (CONTAINS) or a placeholder this adapter finishes evaluating
// in Go once the raw rows are back (PAILLIER_SUM, TOP).
func (a *Adapter) Query(ctx context.Context, sql string) ([]transport.Row, error) {
	translated, post := translate(sql)

	rows, err := a.db.QueryContext(ctx, translated)
	if err != nil {
		return nil, fmt.Errorf("mysqladapter: Query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("mysqladapter: Query: %w", err)
	}

	var out []transport.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("mysqladapter: Query: %w", err)
		}
		row := make(transport.Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		if err := post.apply(row); err != nil {
			return nil, fmt.Errorf("mysqladapter: Query: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// postProcessors finishes every placeholder fragment translate()
// couldn't express as plain MySQL, against one already-fetched row.
type postProcessors []postProcessor

func (ps postProcessors) apply(row transport.Row) error {
	for _, p := range ps {
		if err := p(row); err != nil {
			return err
		}
	}
	return nil
}

type postProcessor func(row transport.Row) error

var (
	// Matches the exact fragment aggregate.go's paillierSumFragment emits,
	// aliased by rewrite.go's "agg%d_%d_" naming.
	paillierSumPattern = regexp.MustCompile(
		`TO_BASE64\(BYTES\(PAILLIER_SUM\(FROM_BASE64\((` + identPattern + `)\), '(0x[0-9a-fA-F]+)'\)\)\) AS (` + identPattern + `)`)

	// Matches the exact fragment aggregate.go's lowerTop emits.
	topPattern = regexp.MustCompile(`TOP\((` + identPattern + `)(?:, (\d+))?\) AS (` + identPattern + `)`)

	// Matches the exact fragment where.go's combineCondition emits for
	// CONTAINS.
	containsPattern = regexp.MustCompile(
		`\((` + identPattern + `) contains to_base64\(left\(bytes\(sha1\(concat\(left\((` + identPattern + `), 24\), '([A-Za-z0-9+/=]+)'\)\)\), 8\)\)\)`)
)

const identPattern = "[A-Za-z0-9_.]+"

// translate rewrites sql in place for MySQL and returns the post-fetch
// work the untranslatable fragments still need.
func translate(sql string) (string, postProcessors) {
	var post postProcessors

	sql = containsPattern.ReplaceAllString(sql,
		`(INSTR($1, TO_BASE64(LEFT(UNHEX(SHA1(CONCAT(LEFT($2, 24), '$3'))), 8))) > 0)`)

	sql = paillierSumPattern.ReplaceAllStringFunc(sql, func(match string) string {
		m := paillierSumPattern.FindStringSubmatch(match)
		wireCol, nSquareHex, alias := m[1], m[2], m[3]
		post = append(post, paillierSumProcessor(alias, nSquareHex))
		// GROUP_CONCAT over every raw ciphertext in the group lets the
		// post-processor fold them with Paillier's homomorphic Add.
		return fmt.Sprintf("GROUP_CONCAT(%s SEPARATOR 0x01) AS %s", wireCol, alias)
	})

	sql = topPattern.ReplaceAllStringFunc(sql, func(match string) string {
		m := topPattern.FindStringSubmatch(match)
		col, kRaw, alias := m[1], m[2], m[3]
		k := 1
		if kRaw != "" {
			k, _ = strconv.Atoi(kRaw)
		}
		post = append(post, topProcessor(alias, k))
		return fmt.Sprintf("GROUP_CONCAT(%s SEPARATOR 0x01) AS %s", col, alias)
	})

	return sql, post
}

// paillierSumProcessor folds the raw ciphertexts translate() collected
// via GROUP_CONCAT under alias into a single ciphertext using the
// homomorphic property Add(E(a), E(b)) = E(a+b) mod n^2, reproducing
// exactly what a PAILLIER_SUM server builtin would have returned.
func paillierSumProcessor(alias, nSquareHex string) postProcessor {
	return func(row transport.Row) error {
		raw, ok := row[alias]
		if !ok || raw == nil {
			return nil
		}
		nSquare, ok := new(big.Int).SetString(strings.TrimPrefix(nSquareHex, "0x"), 16)
		if !ok {
			return fmt.Errorf("bad n^2 literal %q", nSquareHex)
		}

		parts := strings.Split(toRowString(raw), "\x01")
		sum := big.NewInt(1)
		for _, p := range parts {
			ct, err := base64.StdEncoding.DecodeString(p)
			if err != nil {
				return fmt.Errorf("decoding ciphertext: %w", err)
			}
			c := new(big.Int).SetBytes(ct)
			sum.Mod(sum.Mul(sum, c), nSquare)
		}
		row[alias] = base64.StdEncoding.EncodeToString(sum.Bytes())
		return nil
	}
}

// topProcessor picks the k most frequent raw values GROUP_CONCAT
// collected under alias, approximating BigQuery's TOP aggregate, and
// joins them back the way a single-row TOP(expr) result would read.
func topProcessor(alias string, k int) postProcessor {
	return func(row transport.Row) error {
		raw, ok := row[alias]
		if !ok || raw == nil {
			return nil
		}
		parts := strings.Split(toRowString(raw), "\x01")
		counts := make(map[string]int, len(parts))
		for _, p := range parts {
			counts[p]++
		}
		uniq := make([]string, 0, len(counts))
		for v := range counts {
			uniq = append(uniq, v)
		}
		sort.Slice(uniq, func(i, j int) bool {
			if counts[uniq[i]] != counts[uniq[j]] {
				return counts[uniq[i]] > counts[uniq[j]]
			}
			return uniq[i] < uniq[j]
		})
		if len(uniq) > k {
			uniq = uniq[:k]
		}
		row[alias] = strings.Join(uniq, ",")
		return nil
	}
}

func toRowString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
