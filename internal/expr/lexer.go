package expr

import (
	"github.com/unkn0wn-root/stagtheme/internal/errdef"
)

// Lexer walks an arithmetic expression byte by byte. It recognises only
// numbers, ${name} references, the five operators and parentheses; any
// other input is a syntax error, which is what keeps the evaluator safe:
// function calls and member access are not expressible in the token set.
type Lexer struct {
	src []byte
	i   int
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: []byte(src)}
}

// Tokenize lexes the whole expression, failing on the first illegal byte.
func Tokenize(src string) ([]Tok, error) {
	lx := NewLexer(src)
	var out []Tok
	for {
		t, err := lx.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if t.K == EOF {
			return out, nil
		}
	}
}

func (l *Lexer) Next() (Tok, error) {
	for {
		ch := l.peek()
		if ch == 0 {
			return Tok{K: EOF, Pos: l.i}, nil
		}
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			l.read()
			continue
		}

		p := l.i

		switch ch {
		case '+':
			l.read()
			return Tok{K: PLUS, Lit: "+", Pos: p}, nil
		case '-':
			l.read()
			return Tok{K: MINUS, Lit: "-", Pos: p}, nil
		case '*':
			l.read()
			return Tok{K: STAR, Lit: "*", Pos: p}, nil
		case '/':
			l.read()
			return Tok{K: SLASH, Lit: "/", Pos: p}, nil
		case '%':
			l.read()
			return Tok{K: PERCENT, Lit: "%", Pos: p}, nil
		case '(':
			l.read()
			return Tok{K: LPAREN, Lit: "(", Pos: p}, nil
		case ')':
			l.read()
			return Tok{K: RPAREN, Lit: ")", Pos: p}, nil
		case '$':
			name, err := l.scanVarRef()
			if err != nil {
				return Tok{}, err
			}
			return Tok{K: VARREF, Lit: name, Pos: p}, nil
		}

		if isDigit(ch) || ch == '.' {
			num, err := l.scanNumber()
			if err != nil {
				return Tok{}, err
			}
			return Tok{K: NUMBER, Lit: num, Pos: p}, nil
		}

		return Tok{}, errdef.New(errdef.CodeSyntax, "unexpected character %q at position %d", ch, p)
	}
}

func (l *Lexer) scanVarRef() (string, error) {
	p := l.i
	l.read()
	if l.peek() != '{' {
		return "", errdef.New(errdef.CodeSyntax, "stray '$' at position %d, expected '${name}'", p)
	}
	l.read()
	start := l.i
	for isIdent(l.peek()) {
		l.read()
	}
	if l.i == start {
		return "", errdef.New(errdef.CodeSyntax, "empty variable reference at position %d", p)
	}
	if l.peek() != '}' {
		return "", errdef.New(errdef.CodeSyntax, "unterminated variable reference at position %d", p)
	}
	name := string(l.src[start:l.i])
	l.read()
	return name, nil
}

func (l *Lexer) scanNumber() (string, error) {
	p := l.i
	start := l.i
	for isDigit(l.peek()) {
		l.read()
	}
	if l.peek() == '.' {
		l.read()
		if !isDigit(l.peek()) {
			return "", errdef.New(errdef.CodeSyntax, "malformed number at position %d", p)
		}
		for isDigit(l.peek()) {
			l.read()
		}
	}
	return string(l.src[start:l.i]), nil
}

func (l *Lexer) peek() byte {
	if l.i >= len(l.src) {
		return 0
	}
	return l.src[l.i]
}

func (l *Lexer) read() byte {
	if l.i >= len(l.src) {
		return 0
	}
	b := l.src[l.i]
	l.i++
	return b
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdent(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
