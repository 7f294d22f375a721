package fact

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
)

func TestParseLineSplitsAtTopLevelCommas(t *testing.T) {
	a, err := ParseLine("route(a, f(b,c), 'x,y', 10, _).")
	assert.NilError(t, err)

	assert.Equal(t, a.Name, "route")
	assert.Equal(t, a.Arity(), 5)
	assert.Equal(t, a.Args[0].Kind, Symbol)
	assert.Equal(t, a.Args[1].Kind, Compound)
	assert.Equal(t, a.Args[1].Name, "f")
	assert.Equal(t, len(a.Args[1].Args), 2)
	assert.Equal(t, a.Args[2].Kind, String)
	assert.Equal(t, a.Args[2].Text, "x,y")
	assert.Equal(t, a.Args[3].Int, int64(10))
	assert.Equal(t, a.Args[4].Text, "_")
}

func TestParseLineTerms(t *testing.T) {
	a, err := ParseLine(`p("quoted id", 'single', 3, -4, 2.5, 1e3, truck, 1.2.3, "a'b).`)
	assert.Assert(t, errors.Is(err, ErrUnbalanced))

	a, err = ParseLine(`p("quoted id", 'single', 3, -4, 2.5, 1e3, truck, 1.2.3).`)
	assert.NilError(t, err)

	assert.Equal(t, a.Args[0].Kind, String)
	assert.Equal(t, a.Args[0].Text, "quoted id")
	assert.Equal(t, a.Args[1].Text, "single")
	assert.Equal(t, a.Args[2].Kind, Integer)
	assert.Equal(t, a.Args[3].Int, int64(-4))
	assert.Equal(t, a.Args[4].Kind, Float)
	assert.Equal(t, a.Args[4].Float, 2.5)
	assert.Equal(t, a.Args[5].Kind, Float)
	assert.Equal(t, a.Args[5].Float, 1000.0)
	assert.Equal(t, a.Args[6].Kind, Symbol)
	assert.Equal(t, a.Args[6].Text, "truck")
	// unparseable numeric-looking token degrades to the raw token
	assert.Equal(t, a.Args[7].Kind, Symbol)
	assert.Equal(t, a.Args[7].Text, "1.2.3")
}

func TestParseLineRejects(t *testing.T) {
	cases := map[string]error{
		"offer(p,(l,3).":      ErrUnbalanced,
		"offer(p,l),3).":      ErrUnbalanced,
		"offer(p,l,3)":        ErrNoMatch,
		"offer p l 3.":        ErrNoMatch,
		"9offer(p,l,3).":      ErrNoMatch,
		"offer(p,,3).":        ErrNoMatch,
		"offer(p,l,3). extra": ErrNoMatch,
	}
	for line, want := range cases {
		_, err := ParseLine(line)
		assert.Assert(t, errors.Is(err, want), "%s: got %v", line, err)
	}
}

func TestDecodeArityAndType(t *testing.T) {
	a, err := ParseLine("route(a,b,truck,10).")
	assert.NilError(t, err)
	_, err = Decode(a)
	assert.Assert(t, errors.Is(err, ErrArity))

	a, err = ParseLine("offer(p1,loc1,lots).")
	assert.NilError(t, err)
	_, err = Decode(a)
	assert.Assert(t, errors.Is(err, ErrType))

	a, err = ParseLine("shipment(a,b).")
	assert.NilError(t, err)
	_, err = Decode(a)
	assert.Assert(t, errors.Is(err, ErrUnknownPredicate))

	a, err = ParseLine(`route("Port A",b,truck,7.5,x).`)
	assert.NilError(t, err)
	f, err := Decode(a)
	assert.NilError(t, err)
	assert.DeepEqual(t, f, Route{From: "Port A", To: "b", Resource: "truck", Distance: 7.5, Extra: Sym("x")})
}

const instance = `
% a tiny instance
location(loc1).
location(loc2).

transportResource(truck).
transportCapacity(truck, 40).
part(p1).
offer(p1, loc1, 5).
demand(p1, loc2, 5).
route(loc1, loc2, truck, 10, 3).
route(loc1, loc2, truck).
foo(bar).
offer(p1, loc1, many).
this is not a fact
`

func TestParseSkipsAndCounts(t *testing.T) {
	res, err := Parse(strings.NewReader(instance))
	assert.NilError(t, err)

	assert.Equal(t, len(res.Facts), 8)
	assert.Equal(t, res.Unknown, 1)
	assert.Equal(t, len(res.Dropped), 3)
	assert.Assert(t, errors.Is(res.Dropped[0], ErrArity))
	assert.Assert(t, errors.Is(res.Dropped[1], ErrType))
	assert.Assert(t, errors.Is(res.Dropped[2], ErrNoMatch))
	assert.Equal(t, res.Dropped[0].Line, 12)

	assert.DeepEqual(t, res.Facts[5], Offer{Part: "p1", Location: "loc1", Quantity: 5})
}

func TestFormatReparses(t *testing.T) {
	facts := []Fact{
		Phi{Location: "loc1", Part: "p1", Value: -500000},
		DualCover{Route: "loc1->loc2", Part: "p1", Value: 1000},
		Offer{Part: "p1", Location: "Port A", Quantity: 2.5},
		TransportSpeed{Resource: "ship", Speed: 12},
		Route{From: "a", To: "b", Resource: "rail", Distance: 3},
	}
	var src strings.Builder
	for _, f := range facts {
		src.WriteString(Format(f))
		src.WriteByte('\n')
	}
	assert.Equal(t, strings.SplitN(src.String(), "\n", 2)[0], "phi(loc1,p1,-500000).")

	res, err := Parse(strings.NewReader(src.String()))
	assert.NilError(t, err)
	assert.Equal(t, len(res.Dropped), 0)
	assert.Equal(t, len(res.Facts), len(facts))
	for i := range facts {
		assert.Equal(t, res.Facts[i].Predicate(), facts[i].Predicate())
		assert.Equal(t, res.Facts[i].Atom().Arity(), facts[i].Atom().Arity())
	}
	assert.DeepEqual(t, res.Facts[0], facts[0])
	assert.DeepEqual(t, res.Facts[1], facts[1])
	assert.DeepEqual(t, res.Facts[2], facts[2])
}
