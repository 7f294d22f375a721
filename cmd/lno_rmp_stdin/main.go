// Command lno_rmp_stdin is an external master solver. It reads an instance document as JSON
// on stdin, solves the restricted master and prints the status summary and fenced dual
// sections on stdout.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"math"
	"os"

	log "github.com/golang/glog"
	"github.com/ohowland/lno_core/internal/pkg/instance"
	"github.com/ohowland/lno_core/internal/pkg/rmp"
	"github.com/ohowland/lno_core/internal/pkg/solve"
	"github.com/pkg/errors"
)

var bigM = flag.Float64("bigm", rmp.DefaultBigM, "slack penalty of the master")

func main() {
	flag.Parse()
	defer log.Flush()

	var doc instance.Document
	if err := json.NewDecoder(bufio.NewReader(os.Stdin)).Decode(&doc); err != nil {
		log.Exitf("[RMP] read request: %v", err)
	}
	m, err := instance.FromDocument(doc)
	if err != nil {
		log.Exitf("[RMP] %v", err)
	}

	resp, err := (&solve.InProcess{BigM: *bigM}).Solve(context.Background(), m)
	switch {
	case errors.Is(err, solve.ErrInfeasible):
		resp = &solve.Response{Status: "infeasible", Objective: math.NaN()}
	case errors.Is(err, solve.ErrUnbounded):
		resp = &solve.Response{Status: "unbounded", Objective: math.NaN()}
	case err != nil:
		log.Exitf("[RMP] %v", err)
	}

	if err := solve.WriteOutput(os.Stdout, resp); err != nil {
		log.Exitf("[RMP] %v", err)
	}
}
