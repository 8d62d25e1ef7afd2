package rewrite

import (
	"fmt"

	"github.com/encql/encql/internal/interp"
	"github.com/encql/encql/internal/token"
)

// classifySelectItem decides how one already-lowered SELECT list entry
// reaches the server and how the reassembler recovers its final value:
//
//   - a constant expression needs no server column at all;
//   - a bare encrypted field becomes its own aliased wire column;
//   - a bare plaintext field passes through unchanged;
//   - a bare AggregationQuery was already hoisted into the SELECT list by
//     collapseAggregations, so it needs no additional server column here;
//   - any other composite expression must contain no encrypted field and
//     no aggregate (those cannot be combined with other operators in one
//     select item) and is forwarded as an opaque "ue<i>_" column.
func classifySelectItem(expr []token.Token, alias string, idx int, ctx *Context) (string, SelectResidual, error) {
	if _, ok := interp.EvaluateConstant(expr); ok {
		return "", SelectResidual{Alias: selectOutputName(alias, idx), Expr: expr}, nil
	}

	if len(expr) == 1 {
		switch t := expr[0].(type) {
		case *token.AggregationQuery:
			return "", SelectResidual{Alias: selectOutputName(alias, idx), Expr: expr}, nil
		case *token.Encrypted:
			part, serverCol, err := ctx.selectEncrypted(t)
			if err != nil {
				return "", SelectResidual{}, err
			}
			out := alias
			if out == "" {
				out = t.OriginalName()
			}
			// Keep Kind/Related on the residual token (renamed to the
			// server column) so the reassembler knows which cipher to
			// apply to the returned ciphertext.
			ref := token.NewEncrypted(serverCol, t.Kind)
			ref.SetOriginalName(t.OriginalName())
			ref.Related = t.Related
			return part, SelectResidual{Alias: out, Expr: []token.Token{ref}}, nil
		case *token.Field:
			part, serverCol := selectPlain(t, alias)
			out := alias
			if out == "" {
				out = t.OriginalName()
			}
			return part, SelectResidual{Alias: out, Expr: []token.Token{token.NewField(serverCol)}}, nil
		case token.CountStar:
			colAlias := alias
			if colAlias == "" {
				colAlias = fmt.Sprintf("col%d_", idx)
			}
			part := fmt.Sprintf("COUNT(*) AS %s", colAlias)
			return part, SelectResidual{Alias: colAlias, Expr: []token.Token{token.NewField(colAlias)}}, nil
		}
	}

	if containsEncrypted(expr) {
		return "", SelectResidual{}, invalidQuery("composite expressions over encrypted columns are not supported")
	}
	if containsAggregationQuery(expr) {
		return "", SelectResidual{}, invalidQuery("an aggregate function must be selected on its own, not combined with other operators")
	}

	infix, err := infixOf(expr, ctx)
	if err != nil {
		return "", SelectResidual{}, err
	}
	ueAlias := fmt.Sprintf("ue%d_", idx)
	part := fmt.Sprintf("%s AS %s", infix, ueAlias)
	out := alias
	if out == "" {
		out = ueAlias
	}
	return part, SelectResidual{Alias: out, Expr: []token.Token{&token.UnencryptedQuery{Alias: ueAlias}}}, nil
}

func containsAggregationQuery(expr []token.Token) bool {
	for _, tok := range expr {
		if _, ok := tok.(*token.AggregationQuery); ok {
			return true
		}
	}
	return false
}

func selectOutputName(alias string, idx int) string {
	if alias != "" {
		return alias
	}
	return fmt.Sprintf("col%d_", idx)
}

// selectEncrypted renders the server-side SELECT fragment for a bare
// encrypted field reference and reports the server column name its value
// will be returned under.
func (ctx *Context) selectEncrypted(enc *token.Encrypted) (part string, serverCol string, err error) {
	wireCol := wireColumnName(prefixFor(enc.Kind), enc.OriginalName())
	serverCol = wireCol
	if ctx.Manifest != nil {
		serverCol = ctx.Manifest.Alias(wireCol)
	}
	if serverCol != wireCol {
		part = fmt.Sprintf("%s AS %s", wireCol, serverCol)
	} else {
		part = wireCol
	}
	return part, serverCol, nil
}

func selectPlain(f *token.Field, alias string) (part string, serverCol string) {
	serverCol = f.Name
	part = f.Name
	if alias != "" {
		serverCol = alias
		part = fmt.Sprintf("%s AS %s", f.Name, alias)
	}
	return part, serverCol
}
