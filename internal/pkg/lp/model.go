// Package lp builds small linear programs over nonnegative continuous variables and solves
// them with the gonum simplex, returning primal values and constraint duals.
//
// All matrices are dense. Masters of a few hundred rows and under a thousand columns,
// such as 10 locations with 90 routes and 2 products, solve in seconds; larger instances
// belong to the external solver.
package lp

import "fmt"

// Sense is the relation between a constraint's left-hand side and its right-hand side.
type Sense int

const (
	Equal Sense = iota
	GreaterEqual
	LessEqual
)

func (s Sense) String() string {
	switch s {
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	case LessEqual:
		return "<="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// Variable is a continuous decision variable with lower bound 0 and no upper bound.
type Variable struct {
	Name string
	Obj  float64

	index int
}

// Times returns the term coef * v.
func (v *Variable) Times(coef float64) Term { return Term{Var: v, Coef: coef} }

type Term struct {
	Var  *Variable
	Coef float64
}

type Constraint struct {
	Name  string
	Sense Sense
	RHS   float64
	Terms []Term

	index int
}

// Model is a minimization problem. It is not safe for concurrent use.
type Model struct {
	Name string

	vars []*Variable
	cons []*Constraint
}

func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVariable adds a variable with objective coefficient obj.
func (m *Model) AddVariable(name string, obj float64) *Variable {
	v := &Variable{Name: name, Obj: obj, index: len(m.vars)}
	m.vars = append(m.vars, v)
	return v
}

// AddConstraint adds sum(terms) <sense> rhs. Terms naming the same variable are summed.
func (m *Model) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) *Constraint {
	c := &Constraint{Name: name, Sense: sense, RHS: rhs, Terms: terms, index: len(m.cons)}
	m.cons = append(m.cons, c)
	return c
}

// AddTerm appends a term to an existing constraint.
func (c *Constraint) AddTerm(t Term) { c.Terms = append(c.Terms, t) }

func (m *Model) Variables() []*Variable { return m.vars }
func (m *Model) Constraints() []*Constraint { return m.cons }

// Solution holds an optimal primal/dual pair. Duals follow the minimization convention:
// free for Equal rows, nonnegative for GreaterEqual rows, nonpositive for LessEqual rows.
type Solution struct {
	Objective float64

	values []float64
	duals  []float64
}

func (s *Solution) Value(v *Variable) float64 { return s.values[v.index] }
func (s *Solution) Dual(c *Constraint) float64 { return s.duals[c.index] }
