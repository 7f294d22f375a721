// Package solve hands a canonical instance to a master solver and returns its objective and
// dual prices. The solver runs either in this process or as an external command that reads
// the instance document on stdin and prints fenced dual sections on stdout.
package solve

import (
	"context"
	"fmt"
	"math"
	"strings"

	log "github.com/golang/glog"
	"github.com/ohowland/lno_core/internal/pkg/duals"
	"github.com/ohowland/lno_core/internal/pkg/instance"
	"github.com/ohowland/lno_core/internal/pkg/lp"
	"github.com/ohowland/lno_core/internal/pkg/rmp"
	"github.com/pkg/errors"
)

var (
	// ErrInfeasible means the master was solved and has no feasible point.
	ErrInfeasible = errors.New("master problem is infeasible")
	// ErrUnbounded means the master was solved and its objective is unbounded below.
	ErrUnbounded = errors.New("master problem is unbounded")
)

// StatusOptimal is the status text reported for a solved master.
const StatusOptimal = "optimal solution found"

// Solver solves the restricted master for a model.
type Solver interface {
	Solve(ctx context.Context, m *instance.Model) (*Response, error)
}

// Response is a solver's answer. Objective is NaN when the solver did not report one.
type Response struct {
	Status    string
	Objective float64
	Duals     duals.Duals
}

// Infeasible reports whether the status text declares the master infeasible.
func (r *Response) Infeasible() bool {
	return strings.Contains(strings.ToLower(r.Status), "infeasible")
}

// Unbounded reports whether the status text declares the master unbounded.
func (r *Response) Unbounded() bool {
	return strings.Contains(strings.ToLower(r.Status), "unbounded")
}

// ProcessError is an infrastructure failure: the solver could not run, exited nonzero,
// timed out, or printed output that does not follow the protocol.
type ProcessError struct {
	Op       string
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("solver %s", e.Op)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	msg += ": " + e.Err.Error()
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// InProcess builds and solves the master with package rmp.
type InProcess struct {
	BigM    float64
	Columns []rmp.Column
}

type result struct {
	sol *rmp.Solution
	err error
}

func (s *InProcess) Solve(ctx context.Context, m *instance.Model) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProcessError{Op: "in-process", Err: err}
	}
	bigM := s.BigM
	if bigM == 0 {
		bigM = rmp.DefaultBigM
	}
	ms, err := rmp.Build(m, rmp.Options{BigM: bigM, Columns: s.Columns})
	if err != nil {
		return nil, errors.Wrap(err, "build master")
	}

	done := make(chan result, 1)
	go func() {
		sol, err := ms.Solve()
		done <- result{sol, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, &ProcessError{Op: "in-process", Err: ctx.Err()}
	case r = <-done:
	}

	switch {
	case errors.Is(r.err, lp.ErrInfeasible):
		return nil, errors.WithMessage(ErrInfeasible, r.err.Error())
	case errors.Is(r.err, lp.ErrUnbounded):
		return nil, errors.WithMessage(ErrUnbounded, r.err.Error())
	case r.err != nil:
		return nil, &ProcessError{Op: "in-process", Err: r.err}
	}

	log.V(1).Infof("[Solve] in-process objective %g", r.sol.Objective)
	return &Response{Status: StatusOptimal, Objective: r.sol.Objective, Duals: r.sol.Duals}, nil
}

func noObjective() float64 { return math.NaN() }
