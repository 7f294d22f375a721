package fact

import (
	"github.com/pkg/errors"
)

// Fact is one of the typed records below. Atom converts it back to its untyped form.
type Fact interface {
	Predicate() string
	Atom() Atom
}

type Location struct{ Name string }

type TransportResource struct{ Name string }

type TransportCapacity struct {
	Resource string
	Capacity float64
}

type TransportCO2 struct {
	Resource string
	CO2      float64
}

type TransportCost struct {
	Resource string
	Cost     float64
}

type TransportSpeed struct {
	Resource string
	Speed    float64
}

type Part struct{ Name string }

type PartSize struct {
	Part string
	Size float64
}

type PartVal struct {
	Part  string
	Value float64
}

// PartTR marks Resource as eligible to carry Part.
type PartTR struct {
	Part     string
	Resource string
}

type Offer struct {
	Part     string
	Location string
	Quantity float64
}

type Demand struct {
	Part     string
	Location string
	Quantity float64
}

// Route is a directed connection served by one transport resource. Extra is the unused
// fifth argument, kept so the fact can be written back unchanged.
type Route struct {
	From     string
	To       string
	Resource string
	Distance float64
	Extra    Term
}

// Phi is a scaled conservation dual for a (location, part) pair.
type Phi struct {
	Location string
	Part     string
	Value    int64
}

// DualCover is a scaled coverage dual. Route is written as From->To.
type DualCover struct {
	Route string
	Part  string
	Value int64
}

func (Location) Predicate() string          { return "location" }
func (TransportResource) Predicate() string { return "transportResource" }
func (TransportCapacity) Predicate() string { return "transportCapacity" }
func (TransportCO2) Predicate() string      { return "transportCO2" }
func (TransportCost) Predicate() string     { return "transportCost" }
func (TransportSpeed) Predicate() string    { return "transportSpeed" }
func (Part) Predicate() string              { return "part" }
func (PartSize) Predicate() string          { return "partSize" }
func (PartVal) Predicate() string           { return "partVal" }
func (PartTR) Predicate() string            { return "partTR" }
func (Offer) Predicate() string             { return "offer" }
func (Demand) Predicate() string            { return "demand" }
func (Route) Predicate() string             { return "route" }
func (Phi) Predicate() string               { return "phi" }
func (DualCover) Predicate() string         { return "dualCover" }

func (f Location) Atom() Atom          { return atom(f, Sym(f.Name)) }
func (f TransportResource) Atom() Atom { return atom(f, Sym(f.Name)) }
func (f TransportCapacity) Atom() Atom { return atom(f, Sym(f.Resource), num(f.Capacity)) }
func (f TransportCO2) Atom() Atom      { return atom(f, Sym(f.Resource), num(f.CO2)) }
func (f TransportCost) Atom() Atom     { return atom(f, Sym(f.Resource), num(f.Cost)) }
func (f TransportSpeed) Atom() Atom    { return atom(f, Sym(f.Resource), num(f.Speed)) }
func (f Part) Atom() Atom              { return atom(f, Sym(f.Name)) }
func (f PartSize) Atom() Atom          { return atom(f, Sym(f.Part), num(f.Size)) }
func (f PartVal) Atom() Atom           { return atom(f, Sym(f.Part), num(f.Value)) }
func (f PartTR) Atom() Atom            { return atom(f, Sym(f.Part), Sym(f.Resource)) }
func (f Offer) Atom() Atom             { return atom(f, Sym(f.Part), Sym(f.Location), num(f.Quantity)) }
func (f Demand) Atom() Atom            { return atom(f, Sym(f.Part), Sym(f.Location), num(f.Quantity)) }
func (f Phi) Atom() Atom               { return atom(f, Sym(f.Location), Sym(f.Part), Int(f.Value)) }
func (f DualCover) Atom() Atom         { return atom(f, Sym(f.Route), Sym(f.Part), Int(f.Value)) }

func (f Route) Atom() Atom {
	extra := f.Extra
	if extra.Text == "" {
		extra = Sym("_")
	}
	return atom(f, Sym(f.From), Sym(f.To), Sym(f.Resource), num(f.Distance), extra)
}

// Format writes a fact as a single line without trailing newline.
func Format(f Fact) string { return f.Atom().String() }

func atom(f Fact, args ...Term) Atom { return Atom{Name: f.Predicate(), Args: args} }

func num(v float64) Term {
	if v == float64(int64(v)) {
		return Int(int64(v))
	}
	return Term{Kind: Float, Text: formatFloat(v), Float: v}
}

var arity = map[string]int{
	"location":          1,
	"transportResource": 1,
	"transportCapacity": 2,
	"transportCO2":      2,
	"transportCost":     2,
	"transportSpeed":    2,
	"part":              1,
	"partSize":          2,
	"partVal":           2,
	"partTR":            2,
	"offer":             3,
	"demand":            3,
	"route":             5,
	"phi":               3,
	"dualCover":         3,
}

// Decode converts an atom of a recognized predicate into its typed record.
func Decode(a Atom) (Fact, error) {
	n, ok := arity[a.Name]
	if !ok {
		return nil, ErrUnknownPredicate
	}
	if a.Arity() != n {
		return nil, errors.Wrapf(ErrArity, "%s/%d, want %s/%d", a.Name, a.Arity(), a.Name, n)
	}
	d := decoder{atom: a}
	var f Fact
	switch a.Name {
	case "location":
		f = Location{d.name(0)}
	case "transportResource":
		f = TransportResource{d.name(0)}
	case "transportCapacity":
		f = TransportCapacity{d.name(0), d.number(1)}
	case "transportCO2":
		f = TransportCO2{d.name(0), d.number(1)}
	case "transportCost":
		f = TransportCost{d.name(0), d.number(1)}
	case "transportSpeed":
		f = TransportSpeed{d.name(0), d.number(1)}
	case "part":
		f = Part{d.name(0)}
	case "partSize":
		f = PartSize{d.name(0), d.number(1)}
	case "partVal":
		f = PartVal{d.name(0), d.number(1)}
	case "partTR":
		f = PartTR{d.name(0), d.name(1)}
	case "offer":
		f = Offer{d.name(0), d.name(1), d.number(2)}
	case "demand":
		f = Demand{d.name(0), d.name(1), d.number(2)}
	case "route":
		f = Route{d.name(0), d.name(1), d.name(2), d.number(3), a.Args[4]}
	case "phi":
		f = Phi{d.name(0), d.name(1), d.integer(2)}
	case "dualCover":
		f = DualCover{d.name(0), d.name(1), d.integer(2)}
	}
	if d.err != nil {
		return nil, d.err
	}
	return f, nil
}

// decoder keeps the first argument error so Decode can read fields positionally.
type decoder struct {
	atom Atom
	err  error
}

func (d *decoder) name(i int) string { return d.atom.Args[i].Text }

func (d *decoder) number(i int) float64 {
	v, ok := d.atom.Args[i].Number()
	if !ok && d.err == nil {
		d.err = errors.Wrapf(ErrType, "%s argument %d is %s %q",
			d.atom.Name, i+1, d.atom.Args[i].Kind, d.atom.Args[i].Text)
	}
	return v
}

func (d *decoder) integer(i int) int64 {
	t := d.atom.Args[i]
	if t.Kind != Integer && d.err == nil {
		d.err = errors.Wrapf(ErrType, "%s argument %d is %s %q, want integer",
			d.atom.Name, i+1, t.Kind, t.Text)
	}
	return t.Int
}
