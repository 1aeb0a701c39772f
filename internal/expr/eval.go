package expr

import (
	"math"
	"strconv"
	"strings"

	"github.com/unkn0wn-root/stagtheme/internal/errdef"
	"github.com/unkn0wn-root/stagtheme/internal/util"
)

// Refs returns the ${name} references in a template, in order of first
// appearance. Unlike Tokenize it tolerates arbitrary literal text between
// references (gradient strings, font stacks), but malformed references
// are still syntax errors.
func Refs(template string) ([]string, error) {
	var out []string
	for i := 0; i < len(template); i++ {
		if template[i] != '$' {
			continue
		}
		if i+1 >= len(template) || template[i+1] != '{' {
			return nil, errdef.New(errdef.CodeSyntax, "stray '$' at position %d, expected '${name}'", i)
		}
		j := i + 2
		start := j
		for j < len(template) && isIdent(template[j]) {
			j++
		}
		if j == start {
			return nil, errdef.New(errdef.CodeSyntax, "empty variable reference at position %d", i)
		}
		if j >= len(template) || template[j] != '}' {
			return nil, errdef.New(errdef.CodeSyntax, "unterminated variable reference at position %d", i)
		}
		out = append(out, template[start:j])
		i = j
	}
	return util.Dedupe(out), nil
}

// HasRefs reports whether the string contains a ${name} reference.
func HasRefs(s string) bool {
	return strings.Contains(s, "${")
}

// IsTemplate reports whether a raw style value needs the evaluator at all:
// either it interpolates variables or it spells out arithmetic.
func IsTemplate(s string) bool {
	if HasRefs(s) {
		return true
	}
	if !strings.ContainsAny(s, "+-*/%") {
		return false
	}
	return numericShape(s)
}

// Evaluate resolves a template against already-resolved variables.
// Substitution happens first; if the substituted form is a pure numeric
// expression it is parsed and computed, otherwise the interpolated string
// is returned as-is (the string-concatenation short circuit).
func Evaluate(template string, vars map[string]Value) (Value, error) {
	interpolated, err := interpolate(template, vars)
	if err != nil {
		return Null(), err
	}
	if !numericShape(interpolated) {
		return Str(interpolated), nil
	}
	toks, err := Tokenize(interpolated)
	if err != nil {
		// The shape check admits sequences the grammar rejects ("1..2");
		// those fail here as expression errors, not syntax panics.
		return Null(), errdef.Wrap(errdef.CodeExpression, err, "evaluate %q", template)
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return Null(), err
	}
	if p.cur().K != EOF {
		return Null(), errdef.New(errdef.CodeExpression, "unexpected token %s at position %d", p.cur().K, p.cur().Pos)
	}
	return Num(n), nil
}

func interpolate(template string, vars map[string]Value) (string, error) {
	refs, err := Refs(template)
	if err != nil {
		return "", err
	}
	if len(refs) == 0 {
		return template, nil
	}
	out := template
	for _, name := range refs {
		v, ok := vars[name]
		if !ok {
			return "", errdef.New(errdef.CodeUndefinedVar, "undefined variable: %s", name)
		}
		out = strings.ReplaceAll(out, "${"+name+"}", v.Format())
	}
	return out, nil
}

// numericShape reports whether a substituted expression consists solely of
// digits, operators, parentheses, dots and whitespace. Anything else means
// the template is string interpolation, not arithmetic.
func numericShape(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	digits := false
	for i := 0; i < len(t); i++ {
		switch ch := t[i]; {
		case ch >= '0' && ch <= '9':
			digits = true
		case ch == '+' || ch == '-' || ch == '*' || ch == '/' || ch == '%':
		case ch == '(' || ch == ')' || ch == '.':
		case ch == ' ' || ch == '\t':
		default:
			return false
		}
	}
	return digits
}

// parser evaluates the token stream directly during descent. Precedence:
// parseExpr handles + and -, parseTerm * / %, parseUnary leading minus.
type parser struct {
	toks []Tok
	i    int
}

func (p *parser) cur() Tok {
	if p.i < len(p.toks) {
		return p.toks[p.i]
	}
	return Tok{K: EOF}
}

func (p *parser) next() Tok {
	t := p.cur()
	p.i++
	return t
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.cur().K == PLUS || p.cur().K == MINUS {
		op := p.next().K
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == PLUS {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for p.cur().K == STAR || p.cur().K == SLASH || p.cur().K == PERCENT {
		op := p.next().K
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch op {
		case STAR:
			left *= right
		case SLASH:
			if right == 0 {
				return 0, errdef.New(errdef.CodeExpression, "division by zero")
			}
			left /= right
		case PERCENT:
			if right == 0 {
				return 0, errdef.New(errdef.CodeExpression, "modulo by zero")
			}
			left = math.Mod(left, right)
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (float64, error) {
	if p.cur().K == MINUS {
		p.next()
		n, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -n, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	t := p.cur()
	switch t.K {
	case NUMBER:
		p.next()
		n, err := strconv.ParseFloat(t.Lit, 64)
		if err != nil {
			return 0, errdef.New(errdef.CodeExpression, "malformed number %q at position %d", t.Lit, t.Pos)
		}
		return n, nil
	case LPAREN:
		p.next()
		n, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.cur().K != RPAREN {
			return 0, errdef.New(errdef.CodeExpression, "expected ')' at position %d", p.cur().Pos)
		}
		p.next()
		return n, nil
	default:
		return 0, errdef.New(errdef.CodeExpression, "unexpected token %s at position %d", t.K, t.Pos)
	}
}
