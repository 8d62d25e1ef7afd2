// Package token defines the tagged-union of values that flow through the
// SQL parser, rewriter, and result interpreter: literals, field references,
// operators, and the various function/aggregation/query wrapper shapes.
// Every Token can render itself back to SQL surface syntax, which is how
// the rewriter reassembles a query it has partially rewritten.
package token

import (
	"fmt"
	"strconv"
	"strings"
)

// Token is any element of a parsed expression's postfix stream.
type Token interface {
	// Surface renders the token back to SQL source text.
	Surface() string
}

// LiteralKind distinguishes the Go type a Literal's value holds.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralInt
	LiteralFloat
	LiteralBool
	LiteralNull
)

// Literal is a constant value appearing in a query.
type Literal struct {
	Kind LiteralKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
}

func NewStringLiteral(s string) *Literal { return &Literal{Kind: LiteralString, Str: s} }
func NewIntLiteral(v int64) *Literal     { return &Literal{Kind: LiteralInt, Int: v} }
func NewFloatLiteral(v float64) *Literal { return &Literal{Kind: LiteralFloat, Flt: v} }
func NewBoolLiteral(v bool) *Literal     { return &Literal{Kind: LiteralBool, Bool: v} }
func NewNullLiteral() *Literal           { return &Literal{Kind: LiteralNull} }

func (l *Literal) Surface() string {
	switch l.Kind {
	case LiteralString:
		return "'" + strings.ReplaceAll(l.Str, "'", "''") + "'"
	case LiteralInt:
		return strconv.FormatInt(l.Int, 10)
	case LiteralFloat:
		return strconv.FormatFloat(l.Flt, 'g', -1, 64)
	case LiteralBool:
		if l.Bool {
			return "true"
		}
		return "false"
	case LiteralNull:
		return "null"
	default:
		return ""
	}
}

// EncryptedKind distinguishes the cryptographic role a field carries.
type EncryptedKind int

const (
	EncryptedNone EncryptedKind = iota
	EncryptedProbabilistic
	EncryptedPseudonym
	EncryptedSearchwords
	EncryptedHomomorphicInt
	EncryptedHomomorphicFloat
)

// Field is a plain (unencrypted) column reference. It carries an optional
// alias and remembers the original dotted name it was parsed from, so the
// rewriter can emit either form depending on context.
type Field struct {
	Name         string
	originalName string
	alias        string
	// Related holds the pseudonym-related encrypted column name, when this
	// field was produced as part of a "related" key-selection rewrite.
	Related string
}

func NewField(name string) *Field { return &Field{Name: name, originalName: name} }

func (f *Field) OriginalName() string { return f.originalName }
func (f *Field) SetOriginalName(n string) *Field {
	f.originalName = n
	return f
}
func (f *Field) Alias() string { return f.alias }
func (f *Field) SetAlias(a string) *Field {
	f.alias = a
	return f
}
func (f *Field) Surface() string { return f.Name }

// Encrypted is a reference to a column that carries ciphertext server-side.
// Kind determines what rewrite rules apply to it (e.g. only Pseudonym
// columns support equality via Related lookups, only the two Homomorphic
// kinds support aggregation collapse).
type Encrypted struct {
	Field
	Kind EncryptedKind
}

func NewEncrypted(name string, kind EncryptedKind) *Encrypted {
	return &Encrypted{Field: *NewField(name), Kind: kind}
}

// Operator is a binary or unary operator token in a postfix expression
// stream; Arity says how many operands precede it.
type Operator struct {
	Symbol string
	Arity  int
}

func (o *Operator) Surface() string { return o.Symbol }

// Builtin is a scalar function call, e.g. to_base64(x).
type Builtin struct {
	Name string
	Argc int
	// Opaque holds pre-rendered surface text when the builtin could not be
	// evaluated client-side (it references a field) and must be forwarded
	// to the server verbatim as an opaque expression.
	Opaque string
}

func (b *Builtin) Surface() string {
	if b.Opaque != "" {
		return b.Opaque
	}
	return b.Name
}

// AggregationFn is an aggregate function call such as SUM(x) or TOP(x, 5).
type AggregationFn struct {
	Name     string // SUM, AVG, COUNT, DISTINCTCOUNT, TOP, GROUP_CONCAT, ...
	Argc     int
	Distinct bool
	Alias    string
}

func (a *AggregationFn) Surface() string {
	if a.Alias != "" {
		return fmt.Sprintf("%s(...) AS %s", a.Name, a.Alias)
	}
	return fmt.Sprintf("%s(...)", a.Name)
}

// FragmentDecode names how the result reassembler must turn one raw
// response value for an aggregation fragment into the Value its residual
// expression operates on.
type FragmentDecode string

const (
	// DecodeOpaque passes the server's own typed value through unchanged
	// (plain COUNT/SUM/AVG/TOP/GROUP_CONCAT results).
	DecodeOpaque FragmentDecode = "opaque"
	// DecodeGroupConcatEncrypted splits a comma-joined GROUP_CONCAT result
	// and decrypts each element with Field's cipher before rejoining.
	DecodeGroupConcatEncrypted FragmentDecode = "groupconcat_encrypted"
	// DecodePaillierSum base64-decodes the fragment and decrypts it as a
	// Paillier ciphertext using Field's homomorphic key.
	DecodePaillierSum FragmentDecode = "paillier_sum"
	// DecodePseudonym decrypts a single returned value with Field's
	// pseudonym cipher (TOP over a pseudonym-encrypted argument).
	DecodePseudonym FragmentDecode = "pseudonym"
)

// AggregationFragment is one server-side aggregate expression hoisted into
// the SELECT list, plus how to decode its returned value.
type AggregationFragment struct {
	SQL    string
	Decode FragmentDecode
	// Field carries the encrypted column the fragment was computed over,
	// when Decode needs it to find the right cipher (nil for DecodeOpaque).
	Field *Encrypted
	// Alias is the response column name this fragment is returned under,
	// assigned once the fragment is hoisted into the final SELECT list.
	Alias string
}

// AggregationQuery wraps a select list entry once it has been collapsed
// into one or more server-side aggregation fragments plus a client-side
// residual postfix expression describing how to combine them.
type AggregationQuery struct {
	Alias     string
	Fragments []AggregationFragment
	Residual  []Token // client-side postfix expression over decoded fragment values
	// IsEncrypted marks a SUM/AVG residual that decrypts a Paillier
	// ciphertext; forbidden in HAVING even though it is allowed in SELECT.
	IsEncrypted bool
	// GroupConcatEncrypted marks a GROUP_CONCAT over a pseudonym or
	// probabilistic column; also forbidden in HAVING.
	GroupConcatEncrypted bool
}

func (a *AggregationQuery) Surface() string {
	parts := make([]string, len(a.Fragments))
	for i, f := range a.Fragments {
		parts[i] = f.SQL
	}
	return strings.Join(parts, ", ")
}

// UnencryptedQuery wraps a select list entry that is a plaintext expression
// over one or more unencrypted fields, given a server-side alias.
type UnencryptedQuery struct {
	Alias      string
	Expression []Token // postfix expression, referencing unencrypted Fields
}

func (u *UnencryptedQuery) Surface() string { return u.Alias }

// CountStar represents COUNT(*).
type CountStar struct{}

func (CountStar) Surface() string { return "COUNT(*)" }
