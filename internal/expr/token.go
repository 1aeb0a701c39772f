package expr

type Kind int

const (
	EOF Kind = iota
	ILLEGAL

	NUMBER
	VARREF

	PLUS
	MINUS
	STAR
	SLASH
	PERCENT

	LPAREN
	RPAREN
)

// Tok is a single lexical token. For VARREF the literal is the bare
// variable name without the ${} wrapper; for NUMBER it is the source text.
type Tok struct {
	K   Kind
	Lit string
	Pos int
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case ILLEGAL:
		return "ILLEGAL"
	case NUMBER:
		return "NUMBER"
	case VARREF:
		return "VARREF"
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PERCENT:
		return "%"
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	default:
		return "?"
	}
}
