// Package fact reads and writes the relational fact language used to describe logistics
// instances and to hand dual prices to the pricing search.
//
// A fact is a single line of the form
//
//	name(arg, arg, ...).
//
// Lines whose first non-blank character is '%' are comments.
package fact

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	log "github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	// ErrNoMatch is returned for lines that are not of the form name(args).
	ErrNoMatch = errors.New("line does not match fact grammar")
	// ErrUnbalanced is returned for lines with malformed parenthesis or quote nesting.
	ErrUnbalanced = errors.New("unbalanced parentheses")
	// ErrUnknownPredicate is returned by Decode for predicates outside the instance vocabulary.
	ErrUnknownPredicate = errors.New("unknown predicate")
	// ErrArity is returned by Decode when a recognized predicate has the wrong argument count.
	ErrArity = errors.New("wrong arity")
	// ErrType is returned by Decode when a numeric argument is not a number.
	ErrType = errors.New("non-numeric argument")
)

// Atom is an untyped fact: a predicate name applied to arguments.
type Atom struct {
	Name string
	Args []Term
}

// Arity is the number of arguments.
func (a Atom) Arity() int { return len(a.Args) }

func (a Atom) String() string {
	var b strings.Builder
	b.WriteString(a.Name)
	b.WriteByte('(')
	for i, t := range a.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.String())
	}
	b.WriteString(").")
	return b.String()
}

// ParseError records a line that was dropped while parsing.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Result is the outcome of parsing a whole fact source.
type Result struct {
	Facts   []Fact
	Dropped []*ParseError
	Unknown int // lines with a well-formed atom of an unrecognized predicate
	Lines   int
}

// Parse reads facts line by line. Malformed lines and lines with a recognized predicate of
// the wrong shape are recorded in Result.Dropped; only read errors are returned.
func Parse(r io.Reader) (*Result, error) {
	res := &Result{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		res.Lines++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		atom, err := ParseLine(line)
		if err == nil {
			var f Fact
			f, err = Decode(atom)
			if err == nil {
				res.Facts = append(res.Facts, f)
				continue
			}
			if errors.Is(err, ErrUnknownPredicate) {
				res.Unknown++
				log.V(2).Infof("[Parser] ignoring %s/%d on line %d", atom.Name, atom.Arity(), res.Lines)
				continue
			}
		}
		pe := &ParseError{Line: res.Lines, Text: line, Err: err}
		log.Warningf("[Parser] dropped %v", pe)
		res.Dropped = append(res.Dropped, pe)
	}
	if err := sc.Err(); err != nil {
		return res, errors.Wrap(err, "read facts")
	}
	log.V(1).Infof("[Parser] %d lines, %d facts, %d dropped, %d unknown",
		res.Lines, len(res.Facts), len(res.Dropped), res.Unknown)
	return res, nil
}

// ParseLine tokenizes a single fact line into an Atom.
func ParseLine(line string) (Atom, error) {
	s := strings.TrimSpace(line)
	if err := checkNesting(s); err != nil {
		return Atom{}, err
	}
	open := strings.IndexByte(s, '(')
	if open <= 0 || !isName(s[:open]) {
		return Atom{}, ErrNoMatch
	}
	args, rest, err := splitArgs(s[open+1:])
	if err != nil {
		return Atom{}, err
	}
	if strings.TrimSpace(rest) != "." {
		return Atom{}, ErrNoMatch
	}
	return Atom{Name: s[:open], Args: args}, nil
}

// checkNesting verifies that parentheses outside quotes balance and quotes are closed.
func checkNesting(s string) error {
	depth := 0
	var q byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case q != 0:
			if c == q {
				q = 0
			}
		case c == '\'' || c == '"':
			q = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return ErrUnbalanced
			}
		}
	}
	if depth != 0 || q != 0 {
		return ErrUnbalanced
	}
	return nil
}

// splitArgs reads comma separated arguments up to the ')' closing the enclosing term and
// returns whatever follows it.
func splitArgs(s string) ([]Term, string, error) {
	var (
		args  []Term
		depth int
		q     byte
		start int
	)
	emit := func(end int) error {
		tok := strings.TrimSpace(s[start:end])
		if tok == "" {
			return ErrNoMatch
		}
		t, err := parseTerm(tok)
		if err != nil {
			return err
		}
		args = append(args, t)
		return nil
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case q != 0:
			if c == q {
				q = 0
			}
		case c == '\'' || c == '"':
			q = c
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == ')':
			if strings.TrimSpace(s[start:i]) == "" && len(args) == 0 {
				return nil, s[i+1:], nil
			}
			if err := emit(i); err != nil {
				return nil, "", err
			}
			return args, s[i+1:], nil
		case c == ',' && depth == 0:
			if err := emit(i); err != nil {
				return nil, "", err
			}
			start = i + 1
		}
	}
	return nil, "", ErrUnbalanced
}
