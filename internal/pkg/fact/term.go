package fact

import (
	"strconv"
	"strings"
)

// Kind classifies an argument token.
type Kind int

const (
	Symbol Kind = iota
	String
	Integer
	Float
	Compound
)

func (k Kind) String() string {
	switch k {
	case Symbol:
		return "symbol"
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Compound:
		return "compound"
	default:
		return "unknown"
	}
}

// Term is a single fact argument. Text always holds the value as it should be read by
// name-typed consumers: the unquoted content for strings and the original token otherwise.
type Term struct {
	Kind  Kind
	Text  string
	Int   int64
	Float float64
	Name  string // compound functor
	Args  []Term // compound arguments
}

// Sym builds a raw symbol term.
func Sym(s string) Term { return Term{Kind: Symbol, Text: s} }

// Int builds an integer term.
func Int(v int64) Term { return Term{Kind: Integer, Text: strconv.FormatInt(v, 10), Int: v} }

// Number reports the numeric value of integer and float terms.
func (t Term) Number() (float64, bool) {
	switch t.Kind {
	case Integer:
		return float64(t.Int), true
	case Float:
		return t.Float, true
	default:
		return 0, false
	}
}

// String formats the term so that it re-tokenizes to an equivalent term.
func (t Term) String() string {
	switch t.Kind {
	case String:
		return quote(t.Text)
	case Symbol:
		if needsQuote(t.Text) {
			return quote(t.Text)
		}
		return t.Text
	default:
		return t.Text
	}
}

// parseTerm classifies one trimmed argument token.
func parseTerm(tok string) (Term, error) {
	if n := len(tok); n >= 2 && (tok[0] == '\'' || tok[0] == '"') && tok[n-1] == tok[0] {
		return Term{Kind: String, Text: tok[1 : n-1]}, nil
	}
	if i := strings.IndexByte(tok, '('); i > 0 && isName(tok[:i]) {
		args, rest, err := splitArgs(tok[i+1:])
		if err != nil {
			return Term{}, err
		}
		if strings.TrimSpace(rest) == "" {
			return Term{Kind: Compound, Text: tok, Name: tok[:i], Args: args}, nil
		}
	}
	if strings.ContainsAny(tok, ".eE") {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return Term{Kind: Float, Text: tok, Float: f}, nil
		}
		return Sym(tok), nil
	}
	if v, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Term{Kind: Integer, Text: tok, Int: v}, nil
	}
	return Sym(tok), nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func needsQuote(s string) bool {
	return s == "" || strings.ContainsAny(s, "(),'\" \t%")
}

func quote(s string) string {
	if strings.ContainsRune(s, '"') {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}
