package solve

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	log "github.com/golang/glog"
	"github.com/ohowland/lno_core/internal/pkg/instance"
	"github.com/pkg/errors"
)

// maxStderr bounds how much solver stderr is kept in a ProcessError.
const maxStderr = 4096

// Subprocess runs an external solver. The instance document is written to its stdin and its
// stdout is parsed with ParseOutput once the process exits. The caller's context bounds the
// run; a context deadline kills the process.
type Subprocess struct {
	Path string
	Args []string
	// Env is appended to the current environment.
	Env []string
}

func (s *Subprocess) Solve(ctx context.Context, m *instance.Model) (*Response, error) {
	req, err := json.Marshal(m.Document())
	if err != nil {
		return nil, errors.Wrap(err, "encode instance document")
	}

	cmd := exec.CommandContext(ctx, s.Path, s.Args...)
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(req)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.V(1).Infof("[Solve] running %s with %d byte request", s.Path, len(req))
	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, s.fail("run", -1, &stderr, ctxErr)
	}
	if err != nil {
		code := -1
		if exit, ok := err.(*exec.ExitError); ok {
			code = exit.ExitCode()
		}
		return nil, s.fail("run", code, &stderr, err)
	}

	resp, err := ParseOutput(&stdout)
	if err != nil {
		return nil, s.fail("output", 0, &stderr, err)
	}
	if resp.Infeasible() {
		return nil, errors.WithMessagef(ErrInfeasible, "solver status %q", resp.Status)
	}
	if resp.Unbounded() {
		return nil, errors.WithMessagef(ErrUnbounded, "solver status %q", resp.Status)
	}
	log.V(1).Infof("[Solve] %s: %s, %d duals", s.Path, resp.Status, resp.Duals.Len())
	return resp, nil
}

func (s *Subprocess) fail(op string, code int, stderr *bytes.Buffer, err error) *ProcessError {
	msg := strings.TrimSpace(stderr.String())
	if len(msg) > maxStderr {
		msg = msg[len(msg)-maxStderr:]
	}
	pe := &ProcessError{Op: op, Path: s.Path, ExitCode: code, Stderr: msg, Err: err}
	log.Errorf("[Solve] %v", pe)
	return pe
}
