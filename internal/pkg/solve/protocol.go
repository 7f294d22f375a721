package solve

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ohowland/lno_core/internal/pkg/duals"
	"github.com/pkg/errors"
)

// Fence markers delimiting the dual sections of solver output.
const (
	FlowBegin  = "DUALS_FLOW_BEGIN"
	FlowEnd    = "DUALS_FLOW_END"
	CoverBegin = "DUALS_COVER_BEGIN"
	CoverEnd   = "DUALS_COVER_END"
)

// ErrMalformed marks solver output that does not follow the fence protocol.
var ErrMalformed = errors.New("malformed solver output")

var (
	phiLine    = regexp.MustCompile(`^phi\(([^,]+),([^)\s]+)\)\s*=\s*(\S+)$`)
	coverLine  = regexp.MustCompile(`^dualCover\(([^,>]+)->([^,]+),([^)\s]+)\)\s*=\s*(\S+)$`)
	statusLine = regexp.MustCompile(`^(?:SCIP )?Status\s*:\s*problem is solved \[(.+)\]`)
	boundLine  = regexp.MustCompile(`^Primal Bound\s*:\s*([^\s(]+)`)
)

type section int

const (
	outside section = iota
	inFlow
	inCover
)

// ParseOutput scans solver stdout. Dual records are read only inside their fences; outside
// the fences only the status and primal bound summary lines are used. Output without dual
// sections is accepted only when the status declares the master infeasible or unbounded.
func ParseOutput(r io.Reader) (*Response, error) {
	resp := &Response{Objective: noObjective(), Duals: duals.New()}
	var seenFlow, seenCover bool
	state := outside

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())

		if state == outside {
			switch line {
			case FlowBegin:
				if seenFlow {
					return nil, errors.Wrapf(ErrMalformed, "line %d: duplicate %s", n, FlowBegin)
				}
				seenFlow, state = true, inFlow
			case CoverBegin:
				if seenCover {
					return nil, errors.Wrapf(ErrMalformed, "line %d: duplicate %s", n, CoverBegin)
				}
				seenCover, state = true, inCover
			case FlowEnd, CoverEnd:
				return nil, errors.Wrapf(ErrMalformed, "line %d: %s outside its section", n, line)
			default:
				if m := statusLine.FindStringSubmatch(line); m != nil {
					resp.Status = strings.TrimSpace(m[1])
				} else if m := boundLine.FindStringSubmatch(line); m != nil {
					if v, err := strconv.ParseFloat(m[1], 64); err == nil {
						resp.Objective = v
					}
				}
			}
			continue
		}

		switch line {
		case "":
			continue
		case FlowBegin, CoverBegin:
			return nil, errors.Wrapf(ErrMalformed, "line %d: %s inside another section", n, line)
		case FlowEnd:
			if state != inFlow {
				return nil, errors.Wrapf(ErrMalformed, "line %d: %s closes the cover section", n, line)
			}
			state = outside
			continue
		case CoverEnd:
			if state != inCover {
				return nil, errors.Wrapf(ErrMalformed, "line %d: %s closes the flow section", n, line)
			}
			state = outside
			continue
		}

		if state == inFlow {
			m := phiLine.FindStringSubmatch(line)
			if m == nil {
				return nil, errors.Wrapf(ErrMalformed, "line %d: not a phi record: %q", n, line)
			}
			v, err := parseValue(m[3], n)
			if err != nil {
				return nil, err
			}
			resp.Duals.Phi[duals.PhiKey{Location: m[1], Product: m[2]}] = v
			continue
		}

		m := coverLine.FindStringSubmatch(line)
		if m == nil {
			return nil, errors.Wrapf(ErrMalformed, "line %d: not a dualCover record: %q", n, line)
		}
		v, err := parseValue(m[4], n)
		if err != nil {
			return nil, err
		}
		resp.Duals.Cover[duals.CoverKey{From: m[1], To: m[2], Product: m[3]}] = v
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read solver output")
	}

	switch state {
	case inFlow:
		return nil, errors.Wrapf(ErrMalformed, "unterminated %s", FlowBegin)
	case inCover:
		return nil, errors.Wrapf(ErrMalformed, "unterminated %s", CoverBegin)
	}
	if resp.Infeasible() || resp.Unbounded() {
		return resp, nil
	}
	if !seenFlow {
		return nil, errors.Wrapf(ErrMalformed, "no %s section", FlowBegin)
	}
	if !seenCover {
		return nil, errors.Wrapf(ErrMalformed, "no %s section", CoverBegin)
	}
	return resp, nil
}

func parseValue(s string, line int) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformed, "line %d: bad dual value %q", line, s)
	}
	return v, nil
}

// WriteOutput prints resp in the form ParseOutput reads. Dual sections are omitted for an
// infeasible or unbounded master.
func WriteOutput(w io.Writer, resp *Response) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Status             : problem is solved [%s]\n", resp.Status)
	if !math.IsNaN(resp.Objective) {
		fmt.Fprintf(bw, "Primal Bound       : %+.14e\n", resp.Objective)
	}
	if !resp.Infeasible() && !resp.Unbounded() {
		fmt.Fprintf(bw, "\n%s\n", FlowBegin)
		for _, k := range resp.Duals.PhiKeys() {
			fmt.Fprintf(bw, "phi(%s,%s)=%s\n", k.Location, k.Product, formatValue(resp.Duals.Phi[k]))
		}
		fmt.Fprintln(bw, FlowEnd)
		fmt.Fprintln(bw, CoverBegin)
		for _, k := range resp.Duals.CoverKeys() {
			fmt.Fprintf(bw, "dualCover(%s->%s,%s)=%s\n", k.From, k.To, k.Product, formatValue(resp.Duals.Cover[k]))
		}
		fmt.Fprintln(bw, CoverEnd)
	}
	return errors.Wrap(bw.Flush(), "write solver output")
}

// formatValue writes plain decimal notation; readers of this format do not accept exponents.
func formatValue(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
