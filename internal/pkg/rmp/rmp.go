// Package rmp formulates the restricted master problem of the column generation scheme
// over a canonical instance and solves it in process.
//
// For every route (a directed location pair) and product there is a flow variable f and a
// slack variable y priced at BigM. Conservation rows require out-flow minus in-flow to equal
// the net supply of each location and product; coverage rows require y - f plus the load of
// any priced-in transport columns on that route to be nonnegative.
package rmp

import (
	"fmt"

	log "github.com/golang/glog"
	"github.com/ohowland/lno_core/internal/pkg/duals"
	"github.com/ohowland/lno_core/internal/pkg/instance"
	"github.com/ohowland/lno_core/internal/pkg/lp"
	"github.com/pkg/errors"
)

// DefaultBigM is the slack penalty used when none is configured.
const DefaultBigM = 1e6

var ErrInvalidColumn = errors.New("invalid column")

// Column is a transport plan priced in by the pricing step: one trip of Resource over the
// route From->To, carrying Load[product] units of each product, at cost Cost.
type Column struct {
	From     string
	To       string
	Resource string
	Cost     float64
	Load     map[string]float64
}

type Options struct {
	BigM    float64
	Columns []Column
}

// Arc identifies a (route, product) pair by IDs.
type Arc struct {
	Route   string
	Product string
}

// Master is a formulated restricted master problem.
type Master struct {
	model *instance.Model
	lp    *lp.Model
	bigM  float64

	flow    map[Arc]*lp.Variable
	slack   map[Arc]*lp.Variable
	columns []*lp.Variable

	conservation map[[2]string]*lp.Constraint
	coverage     map[Arc]*lp.Constraint
}

// Build formulates the master for m. An instance without routes builds; its solve then
// fails as infeasible when any product has nonzero net supply somewhere.
func Build(m *instance.Model, opts Options) (*Master, error) {
	if opts.BigM <= 0 {
		return nil, errors.Errorf("big M must be positive, got %g", opts.BigM)
	}
	ms := &Master{
		model:        m,
		lp:           lp.NewModel("rmp"),
		bigM:         opts.BigM,
		flow:         map[Arc]*lp.Variable{},
		slack:        map[Arc]*lp.Variable{},
		conservation: map[[2]string]*lp.Constraint{},
		coverage:     map[Arc]*lp.Constraint{},
	}

	for _, r := range m.Routes {
		for _, p := range m.Products {
			a := Arc{Route: r.ID, Product: p.ID}
			ms.flow[a] = ms.lp.AddVariable(fmt.Sprintf("f_%s_%s", r.ID, p.ID), 0)
			ms.slack[a] = ms.lp.AddVariable(fmt.Sprintf("y_%s_%s", r.ID, p.ID), opts.BigM)
		}
	}

	for _, l := range m.Locations {
		for _, p := range m.Products {
			var terms []lp.Term
			for _, r := range m.Routes {
				a := Arc{Route: r.ID, Product: p.ID}
				if r.From == l.ID {
					terms = append(terms, ms.flow[a].Times(1))
				}
				if r.To == l.ID {
					terms = append(terms, ms.flow[a].Times(-1))
				}
			}
			name := fmt.Sprintf("flow_%s_%s", l.ID, p.ID)
			ms.conservation[[2]string{l.ID, p.ID}] = ms.lp.AddConstraint(name, lp.Equal, p.NetSupplyDemand[l.ID], terms...)
		}
	}

	for _, r := range m.Routes {
		for _, p := range m.Products {
			a := Arc{Route: r.ID, Product: p.ID}
			name := fmt.Sprintf("cover_%s_%s", r.ID, p.ID)
			ms.coverage[a] = ms.lp.AddConstraint(name, lp.GreaterEqual, 0, ms.slack[a].Times(1), ms.flow[a].Times(-1))
		}
	}

	for i, c := range opts.Columns {
		if err := ms.addColumn(i, c); err != nil {
			return nil, err
		}
	}

	log.V(1).Infof("[RMP] %d variables, %d constraints, %d columns",
		len(ms.lp.Variables()), len(ms.lp.Constraints()), len(ms.columns))
	return ms, nil
}

func (ms *Master) addColumn(i int, c Column) error {
	r, ok := ms.model.RouteBetween(c.From, c.To)
	if !ok {
		return errors.Wrapf(ErrInvalidColumn, "column %d: no route %s->%s", i, c.From, c.To)
	}
	if _, ok := r.TransportResources[c.Resource]; !ok {
		return errors.Wrapf(ErrInvalidColumn, "column %d: resource %s does not serve route %s", i, c.Resource, r.ID)
	}
	if c.Cost < 0 {
		return errors.Wrapf(ErrInvalidColumn, "column %d: negative cost %g", i, c.Cost)
	}
	for p := range c.Load {
		if _, ok := ms.model.Product(p); !ok {
			return errors.Wrapf(ErrInvalidColumn, "column %d: unknown product %s", i, p)
		}
	}

	v := ms.lp.AddVariable(fmt.Sprintf("lambda_%d_%s_%s", i, r.ID, c.Resource), c.Cost)
	for _, p := range ms.model.Products {
		if load := c.Load[p.ID]; load != 0 {
			ms.coverage[Arc{Route: r.ID, Product: p.ID}].AddTerm(v.Times(load))
		}
	}
	ms.columns = append(ms.columns, v)
	return nil
}

// Solution is the optimal primal and dual state of a master.
type Solution struct {
	Objective float64
	Flow      map[Arc]float64
	Slack     map[Arc]float64
	Columns   []float64
	Duals     duals.Duals
}

// Solve optimizes the master. Infeasible and unbounded masters return errors matching
// lp.ErrInfeasible and lp.ErrUnbounded.
func (ms *Master) Solve() (*Solution, error) {
	sol, err := ms.lp.Solve()
	if err != nil {
		return nil, errors.Wrap(err, "solve master")
	}

	out := &Solution{
		Objective: sol.Objective,
		Flow:      make(map[Arc]float64, len(ms.flow)),
		Slack:     make(map[Arc]float64, len(ms.slack)),
		Columns:   make([]float64, len(ms.columns)),
		Duals:     duals.New(),
	}
	for a, v := range ms.flow {
		out.Flow[a] = sol.Value(v)
	}
	for a, v := range ms.slack {
		out.Slack[a] = sol.Value(v)
	}
	for i, v := range ms.columns {
		out.Columns[i] = sol.Value(v)
	}

	m := ms.model
	comp := components(m)
	for _, p := range m.Products {
		// The conservation rows of one product within a connected component sum to zero, so
		// their duals are only fixed up to a shift per component. Report the zero-mean
		// representative; a location no route touches gets 0.
		sum := map[string]float64{}
		count := map[string]int{}
		for _, l := range m.Locations {
			sum[comp[l.ID]] += sol.Dual(ms.conservation[[2]string{l.ID, p.ID}])
			count[comp[l.ID]]++
		}
		for _, l := range m.Locations {
			c := comp[l.ID]
			k := duals.PhiKey{Location: l.Name, Product: p.Name}
			out.Duals.Phi[k] = sol.Dual(ms.conservation[[2]string{l.ID, p.ID}]) - sum[c]/float64(count[c])
		}
	}
	for _, r := range m.Routes {
		for _, p := range m.Products {
			k := duals.CoverKey{From: m.LocationName(r.From), To: m.LocationName(r.To), Product: p.Name}
			out.Duals.Cover[k] = sol.Dual(ms.coverage[Arc{Route: r.ID, Product: p.ID}])
		}
	}

	log.Infof("[RMP] objective %g", out.Objective)
	return out, nil
}

// components maps every location ID to a representative of the locations it is connected
// to by routes, ignoring direction.
func components(m *instance.Model) map[string]string {
	parent := make(map[string]string, len(m.Locations))
	for _, l := range m.Locations {
		parent[l.ID] = l.ID
	}
	find := func(x string) string {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, r := range m.Routes {
		from, to := find(r.From), find(r.To)
		parent[from] = to
	}

	comp := make(map[string]string, len(m.Locations))
	for _, l := range m.Locations {
		comp[l.ID] = find(l.ID)
	}
	return comp
}
