package lp

import (
	"math"

	log "github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
)

var (
	ErrInfeasible = errors.New("lp: problem is infeasible")
	ErrUnbounded  = errors.New("lp: problem is unbounded")
)

// tol bounds what the row reduction treats as zero, relative to the row's largest entry.
const tol = 1e-9

type row struct {
	con   *Constraint
	coefs map[int]float64
}

// Solve presolves the model into standard form, solves it and recovers constraint duals
// from the optimal basis. Rows removed by presolve get dual 0.
func (m *Model) Solve() (*Solution, error) {
	sol := &Solution{
		values: make([]float64, len(m.vars)),
		duals:  make([]float64, len(m.cons)),
	}

	rows, err := m.presolveRows()
	if err != nil {
		return nil, err
	}

	used := make([]bool, len(m.vars))
	for _, r := range rows {
		for j := range r.coefs {
			used[j] = true
		}
	}
	colOf := make([]int, len(m.vars))
	var structural []int
	for j, v := range m.vars {
		colOf[j] = -1
		if used[j] {
			colOf[j] = len(structural)
			structural = append(structural, j)
			continue
		}
		if v.Obj < 0 {
			return nil, errors.Wrapf(ErrUnbounded, "variable %s has negative cost and no constraint", v.Name)
		}
	}

	n := len(structural)
	for _, r := range rows {
		if r.con.Sense != Equal {
			n++
		}
	}

	dense := make([][]float64, len(rows))
	rhs := make([]float64, len(rows))
	names := make([]string, len(rows))
	slack := len(structural)
	for i, r := range rows {
		a := make([]float64, n)
		for j, coef := range r.coefs {
			a[colOf[j]] = coef
		}
		switch r.con.Sense {
		case LessEqual:
			a[slack] = 1
			slack++
		case GreaterEqual:
			a[slack] = -1
			slack++
		}
		dense[i], rhs[i], names[i] = a, r.con.RHS, r.con.Name
	}

	keep, err := independentRows(dense, rhs, names)
	if err != nil {
		return nil, err
	}
	log.V(1).Infof("[LP] %s: %d of %d rows, %d columns", m.Name, len(keep), len(m.cons), n)
	if len(keep) == 0 {
		return sol, nil
	}

	A := mat.NewDense(len(keep), n, nil)
	b := make([]float64, len(keep))
	for k, i := range keep {
		A.SetRow(k, dense[i])
		b[k] = rhs[i]
	}
	c := make([]float64, n)
	for k, j := range structural {
		c[k] = m.vars[j].Obj
	}

	z, x, err := gonumlp.Simplex(c, A, b, 0, nil)
	if err != nil {
		return nil, simplexError(err, m.Name)
	}
	sol.Objective = z
	for k, j := range structural {
		sol.values[j] = x[k]
	}

	y, err := basisDuals(c, A, b, x)
	if err != nil {
		return nil, errors.Wrapf(err, "duals of %s", m.Name)
	}
	for k, i := range keep {
		sol.duals[rows[i].con.index] = y[k]
	}
	return sol, nil
}

// presolveRows sums repeated terms and drops constraints left without coefficients.
func (m *Model) presolveRows() ([]row, error) {
	var rows []row
	for _, c := range m.cons {
		coefs := map[int]float64{}
		for _, t := range c.Terms {
			coefs[t.Var.index] += t.Coef
		}
		for j, v := range coefs {
			if v == 0 {
				delete(coefs, j)
			}
		}
		if len(coefs) > 0 {
			rows = append(rows, row{con: c, coefs: coefs})
			continue
		}
		if !emptyRowHolds(c.Sense, c.RHS) {
			return nil, errors.Wrapf(ErrInfeasible, "empty constraint %s requires 0 %s %g", c.Name, c.Sense, c.RHS)
		}
		log.V(2).Infof("[LP] dropped empty constraint %s", c.Name)
	}
	return rows, nil
}

func emptyRowHolds(s Sense, rhs float64) bool {
	switch s {
	case GreaterEqual:
		return rhs <= 0
	case LessEqual:
		return rhs >= 0
	}
	return rhs == 0
}

// pivotRow is a reduced row scaled to 1 at col.
type pivotRow struct {
	a   []float64
	b   float64
	col int
}

// echelon accumulates linearly independent vectors in reduced form. Every stored row is
// zero at the pivot columns of the rows stored before it.
type echelon struct {
	rows []pivotRow
}

// add reduces a, with right-hand side b, against the stored rows. An independent a is
// stored and add reports true; otherwise it returns what is left of b.
func (e *echelon) add(a []float64, b float64) (bool, float64) {
	r := append([]float64(nil), a...)
	scale := floats.Norm(r, math.Inf(1))

	for _, p := range e.rows {
		if f := r[p.col]; f != 0 {
			floats.AddScaled(r, -f, p.a)
			b -= f * p.b
		}
	}

	col, best := -1, 0.0
	for j, v := range r {
		if math.Abs(v) > best {
			col, best = j, math.Abs(v)
		}
	}
	if best <= tol*scale {
		return false, b
	}

	pivot := r[col]
	floats.Scale(1/pivot, r)
	e.rows = append(e.rows, pivotRow{a: r, b: b / pivot, col: col})
	return true, 0
}

// independentRows returns the indices of a maximal linearly independent subset of rows,
// scanning in order. A dependent row whose right-hand side disagrees with the rows it
// depends on makes the system inconsistent.
func independentRows(rows [][]float64, rhs []float64, names []string) ([]int, error) {
	bscale := 1.0
	for _, v := range rhs {
		bscale = math.Max(bscale, math.Abs(v))
	}

	var e echelon
	var keep []int
	for i := range rows {
		ok, rb := e.add(rows[i], rhs[i])
		if ok {
			keep = append(keep, i)
			continue
		}
		if math.Abs(rb) > tol*bscale {
			return nil, errors.Wrapf(ErrInfeasible, "constraint %s contradicts the constraints it depends on", names[i])
		}
		log.V(2).Infof("[LP] dropped dependent constraint %s", names[i])
	}
	return keep, nil
}

// basisDuals recovers the duals of min cᵀx, Ax = b, x >= 0 from an optimal vertex x. The
// support of x is completed to a basis B and y solves Bᵀy = c_B. A degenerate x admits
// completions whose reduced costs c - Aᵀy are not all nonnegative; degenerate pivots under
// Bland's rule then move to one that is.
func basisDuals(c []float64, A *mat.Dense, b, x []float64) ([]float64, error) {
	m, n := A.Dims()
	xscale := math.Max(1, floats.Norm(x, math.Inf(1)))
	cscale := math.Max(1, floats.Norm(c, math.Inf(1)))

	order := make([]int, 0, n)
	for j, v := range x {
		if v > tol*xscale {
			order = append(order, j)
		}
	}
	for j, v := range x {
		if v <= tol*xscale {
			order = append(order, j)
		}
	}

	var e echelon
	basis := make([]int, 0, m)
	col := make([]float64, m)
	for _, j := range order {
		if ok, _ := e.add(mat.Col(col, j, A), 0); ok {
			basis = append(basis, j)
			if len(basis) == m {
				break
			}
		}
	}
	if len(basis) < m {
		return nil, errors.Errorf("constraint matrix has rank %d, want %d", len(basis), m)
	}
	isBasic := make([]bool, n)
	for _, j := range basis {
		isBasic[j] = true
	}

	var (
		lu  mat.LU
		B   = mat.NewDense(m, m, nil)
		cB  = mat.NewVecDense(m, nil)
		y   = mat.NewVecDense(m, nil)
		xB  = mat.NewVecDense(m, nil)
		w   = mat.NewVecDense(m, nil)
		aty = mat.NewVecDense(n, nil)
		bv  = mat.NewVecDense(m, append([]float64(nil), b...))
	)
	maxPivots := 10 * (m + n)
	for pivots := 0; pivots <= maxPivots; pivots++ {
		for k, j := range basis {
			B.SetCol(k, mat.Col(col, j, A))
			cB.SetVec(k, c[j])
		}
		lu.Factorize(B)
		if err := solveBasis(&lu, y, true, cB); err != nil {
			return nil, err
		}

		aty.MulVec(A.T(), y)
		enter := -1
		for j := 0; j < n; j++ {
			if !isBasic[j] && c[j]-aty.AtVec(j) < -tol*cscale {
				enter = j
				break
			}
		}
		if enter < 0 {
			log.V(2).Infof("[LP] dual feasible basis after %d pivots", pivots)
			return append([]float64(nil), y.RawVector().Data...), nil
		}

		if err := solveBasis(&lu, xB, false, bv); err != nil {
			return nil, err
		}
		if err := solveBasis(&lu, w, false, A.ColView(enter)); err != nil {
			return nil, err
		}
		leave, best := -1, math.Inf(1)
		for k := 0; k < m; k++ {
			wk := w.AtVec(k)
			if wk <= tol {
				continue
			}
			ratio := math.Max(xB.AtVec(k), 0) / wk
			if ratio < best-tol*xscale || (ratio <= best+tol*xscale && basis[k] < basis[leave]) {
				leave, best = k, math.Min(best, ratio)
			}
		}
		if leave < 0 {
			return nil, errors.Errorf("no pivot row for column %d at an optimal vertex", enter)
		}
		isBasic[basis[leave]] = false
		isBasic[enter] = true
		basis[leave] = enter
	}
	return nil, errors.Errorf("no dual feasible basis after %d pivots", maxPivots)
}

// solveBasis solves B·dst = v, or Bᵀ·dst = v when trans is set, for the factorized basis B.
// An ill-conditioned basis is logged and its solution kept.
func solveBasis(lu *mat.LU, dst *mat.VecDense, trans bool, v mat.Vector) error {
	err := lu.SolveVecTo(dst, trans, v)
	if cond, ok := err.(mat.Condition); ok {
		log.V(1).Infof("[LP] ill-conditioned basis (condition %g)", float64(cond))
		return nil
	}
	return errors.Wrap(err, "solve basis")
}

func simplexError(err error, name string) error {
	switch err {
	case gonumlp.ErrInfeasible:
		return errors.Wrapf(ErrInfeasible, "model %s", name)
	case gonumlp.ErrUnbounded:
		return errors.Wrapf(ErrUnbounded, "model %s", name)
	}
	return errors.Wrapf(err, "simplex on model %s", name)
}
