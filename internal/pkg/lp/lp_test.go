package lp

import (
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
	"gotest.tools/v3/assert"
)

func near(t *testing.T, got, want float64) {
	t.Helper()
	assert.Assert(t, scalar.EqualWithinAbsOrRel(got, want, 1e-7, 1e-9), "got %v, want %v", got, want)
}

func TestSolveInequalities(t *testing.T) {
	m := NewModel("example")
	x1 := m.AddVariable("x1", -1)
	x2 := m.AddVariable("x2", -2)
	r1 := m.AddConstraint("r1", LessEqual, 4, x1.Times(-1), x2.Times(2))
	r2 := m.AddConstraint("r2", LessEqual, 9, x1.Times(3), x2.Times(1))

	sol, err := m.Solve()
	assert.NilError(t, err)
	near(t, sol.Objective, -8)
	near(t, sol.Value(x1), 2)
	near(t, sol.Value(x2), 3)
	near(t, sol.Dual(r1), -5.0/7)
	near(t, sol.Dual(r2), -4.0/7)
}

func TestGreaterEqualDualIsNonnegative(t *testing.T) {
	m := NewModel("cover")
	x := m.AddVariable("x", 2)
	c := m.AddConstraint("atLeast3", GreaterEqual, 3, x.Times(1))

	sol, err := m.Solve()
	assert.NilError(t, err)
	near(t, sol.Objective, 6)
	near(t, sol.Value(x), 3)
	near(t, sol.Dual(c), 2)
}

func TestDependentRowsAreDropped(t *testing.T) {
	m := NewModel("flow")
	f := m.AddVariable("f", 1)
	src := m.AddConstraint("src", Equal, 5, f.Times(1))
	dst := m.AddConstraint("dst", Equal, -5, f.Times(-1))

	sol, err := m.Solve()
	assert.NilError(t, err)
	near(t, sol.Objective, 5)
	near(t, sol.Value(f), 5)
	near(t, sol.Dual(src), 1)
	assert.Equal(t, sol.Dual(dst), 0.0)
}

func TestStrongDuality(t *testing.T) {
	m := NewModel("transport")
	ab := m.AddVariable("ab", 3)
	ac := m.AddVariable("ac", 1)
	cb := m.AddVariable("cb", 1)
	y := m.AddVariable("y", 100)
	rows := []*Constraint{
		m.AddConstraint("a", Equal, 4, ab.Times(1), ac.Times(1)),
		m.AddConstraint("b", Equal, -4, ab.Times(-1), cb.Times(-1)),
		m.AddConstraint("c", Equal, 0, ac.Times(-1), cb.Times(1)),
		m.AddConstraint("capAC", GreaterEqual, 0, y.Times(1), ac.Times(-1)),
		m.AddConstraint("limit", LessEqual, 3, ac.Times(1)),
	}

	sol, err := m.Solve()
	assert.NilError(t, err)
	// routing via c pays the slack penalty, so everything goes direct
	near(t, sol.Value(ab), 4)
	near(t, sol.Objective, 12)

	dual := 0.0
	for _, r := range rows {
		dual += r.RHS * sol.Dual(r)
	}
	near(t, dual, sol.Objective)
	assert.Assert(t, sol.Dual(rows[3]) >= -1e-9)
	assert.Assert(t, sol.Dual(rows[4]) <= 1e-9)
}

func TestRepeatedTermsAreSummed(t *testing.T) {
	m := NewModel("sum")
	x := m.AddVariable("x", 1)
	m.AddConstraint("twice", Equal, 4, x.Times(1), x.Times(1))

	sol, err := m.Solve()
	assert.NilError(t, err)
	near(t, sol.Value(x), 2)
}

func TestEmptyRows(t *testing.T) {
	m := NewModel("empty")
	x := m.AddVariable("x", 1)
	m.AddConstraint("trivial", Equal, 0)
	m.AddConstraint("loose", GreaterEqual, -1)
	m.AddConstraint("cancels", LessEqual, 2, x.Times(1), x.Times(-1))

	sol, err := m.Solve()
	assert.NilError(t, err)
	assert.Equal(t, sol.Objective, 0.0)
	assert.Equal(t, sol.Value(x), 0.0)

	m.AddConstraint("impossible", Equal, 3)
	_, err = m.Solve()
	assert.Assert(t, errors.Is(err, ErrInfeasible))
}

func TestInfeasible(t *testing.T) {
	m := NewModel("contradiction")
	f := m.AddVariable("f", 1)
	m.AddConstraint("src", Equal, 5, f.Times(1))
	m.AddConstraint("dst", Equal, -4, f.Times(-1))
	_, err := m.Solve()
	assert.Assert(t, errors.Is(err, ErrInfeasible), "got %v", err)

	m = NewModel("bounds")
	x := m.AddVariable("x", 1)
	m.AddConstraint("hi", LessEqual, 1, x.Times(1))
	m.AddConstraint("lo", GreaterEqual, 2, x.Times(1))
	_, err = m.Solve()
	assert.Assert(t, errors.Is(err, ErrInfeasible), "got %v", err)
}

func TestUnbounded(t *testing.T) {
	m := NewModel("free")
	m.AddVariable("x", -1)
	_, err := m.Solve()
	assert.Assert(t, errors.Is(err, ErrUnbounded), "got %v", err)

	m = NewModel("ray")
	x := m.AddVariable("x", -1)
	m.AddConstraint("lo", GreaterEqual, 1, x.Times(1))
	_, err = m.Solve()
	assert.Assert(t, errors.Is(err, ErrUnbounded), "got %v", err)
}
