package sqlparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/encql/encql/internal/token"
)

// binaryPrecedence is the operator precedence table, lowest-binding first,
// highest last. Operators on the same row are left-associative with equal
// precedence.
var binaryPrecedence = map[string]int{
	"OR": 1,
	"AND": 2,
	"|": 3,
	"^": 4,
	"&": 5,
	"IS": 6, "CONTAINS": 6,
	"==": 7, "=": 7, "!=": 7, "<>": 7,
	"<": 8, "<=": 8, ">": 8, ">=": 8,
	"<<": 9, ">>": 9,
	"+": 10, "-": 10,
	"*": 11, "/": 11, "%": 11,
}

var aggregationNames = map[string]bool{
	"AVG": true, "COUNT": true, "QUANTILES": true, "STDDEV": true,
	"VARIANCE": true, "LAST": true, "MAX": true, "MIN": true, "NTH": true,
	"GROUP_CONCAT": true, "SUM": true, "TOP": true,
}

type exprParser struct {
	toks []lexTok
	pos  int
}

func newExprParser(toks []lexTok) *exprParser {
	return &exprParser{toks: toks}
}

func (p *exprParser) peek() lexTok  { return p.toks[p.pos] }
func (p *exprParser) advance() lexTok {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *exprParser) peekBinOp() (string, int, bool) {
	t := p.peek()
	var text string
	switch t.kind {
	case lexOp:
		text = t.text
	case lexIdent:
		text = upper(t.text)
	default:
		return "", 0, false
	}
	prec, ok := binaryPrecedence[text]
	return text, prec, ok
}

// ParseExpression parses a single expression clause into its postfix token
// stream.
func ParseExpression(src string) ([]token.Token, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := newExprParser(toks)
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != lexEOF {
		return nil, fmt.Errorf("sqlparser: unexpected trailing input at %q", p.peek().text)
	}
	return expr, nil
}

func (p *exprParser) parseExpr(minPrec int) ([]token.Token, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		opText, prec, ok := p.peekBinOp()
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = append(left, right...)
		left = append(left, &token.Operator{Symbol: opText, Arity: 2})
	}
	return left, nil
}

func (p *exprParser) parseUnary() ([]token.Token, error) {
	t := p.peek()
	if t.kind == lexOp && t.text == "-" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return append(operand, &token.Operator{Symbol: "NEG", Arity: 1}), nil
	}
	if t.kind == lexIdent && upper(t.text) == "NOT" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return append(operand, &token.Operator{Symbol: "NOT", Arity: 1}), nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() ([]token.Token, error) {
	t := p.advance()
	switch t.kind {
	case lexNumber:
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, fmt.Errorf("sqlparser: bad float literal %q", t.text)
			}
			return []token.Token{token.NewFloatLiteral(f)}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sqlparser: bad integer literal %q", t.text)
		}
		return []token.Token{token.NewIntLiteral(n)}, nil
	case lexString:
		return []token.Token{token.NewStringLiteral(t.text)}, nil
	case lexLParen:
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.peek().kind != lexRParen {
			return nil, fmt.Errorf("sqlparser: expected closing parenthesis")
		}
		p.advance()
		return inner, nil
	case lexIdent:
		upperName := upper(t.text)
		if upperName == "NULL" {
			return []token.Token{token.NewNullLiteral()}, nil
		}
		if upperName == "TRUE" || upperName == "FALSE" {
			return []token.Token{token.NewBoolLiteral(upperName == "TRUE")}, nil
		}
		if p.peek().kind == lexLParen {
			return p.parseCall(t.text)
		}
		return []token.Token{token.NewField(t.text)}, nil
	default:
		return nil, fmt.Errorf("sqlparser: unexpected token %q", t.text)
	}
}

func (p *exprParser) parseCall(name string) ([]token.Token, error) {
	p.advance() // consume '('
	upperName := upper(name)

	if upperName == "COUNT" && p.peek().kind == lexStar {
		p.advance()
		if p.peek().kind != lexRParen {
			return nil, fmt.Errorf("sqlparser: expected ')' after COUNT(*)")
		}
		p.advance()
		return []token.Token{token.CountStar{}}, nil
	}

	distinct := false
	if p.peek().kind == lexIdent && upper(p.peek().text) == "DISTINCT" {
		distinct = true
		p.advance()
	}

	var args []token.Token
	argc := 0
	if p.peek().kind != lexRParen {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg...)
			argc++
			if p.peek().kind == lexComma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.peek().kind != lexRParen {
		return nil, fmt.Errorf("sqlparser: expected ')' closing call to %s", name)
	}
	p.advance()

	if aggregationNames[upperName] {
		fnName := upperName
		if upperName == "COUNT" && distinct {
			fnName = "DISTINCTCOUNT"
		}
		return append(args, &token.AggregationFn{Name: fnName, Argc: argc, Distinct: distinct}), nil
	}
	return append(args, &token.Builtin{Name: upperName, Argc: argc}), nil
}
