// Package colgen runs one iteration of the master side of column generation: read the
// instance facts, solve the restricted master, and write the dual facts the pricing step
// consumes. Deciding whether to iterate again is left to the caller.
package colgen

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/ohowland/lno_core/internal/pkg/config"
	"github.com/ohowland/lno_core/internal/pkg/duals"
	"github.com/ohowland/lno_core/internal/pkg/fact"
	"github.com/ohowland/lno_core/internal/pkg/instance"
	"github.com/ohowland/lno_core/internal/pkg/msg"
	"github.com/ohowland/lno_core/internal/pkg/solve"
	"github.com/pkg/errors"
)

// Iteration records what one run saw and produced.
type Iteration struct {
	ID       uuid.UUID
	Model    *instance.Model
	Parse    *fact.Result
	Response *solve.Response
	Warnings []duals.Warning
}

// Runner executes iterations. Timeout bounds the solve stage; zero means no limit. When
// Events is set, the Iteration is published after every stage.
type Runner struct {
	Solver   solve.Solver
	Encoder  *duals.Encoder
	Settings instance.Settings
	Timeout  time.Duration
	Events   *msg.PubSub
}

// New builds a Runner from a run configuration. Its Events publisher has no subscribers
// until Watch or a driver subscribes.
func New(c config.Config) (*Runner, error) {
	timeout, err := c.Timeout()
	if err != nil {
		return nil, err
	}
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, errors.Wrap(err, "runner id")
	}
	return &Runner{
		Solver:   c.NewSolver(),
		Encoder:  c.Encoder(),
		Settings: c.Settings,
		Timeout:  timeout,
		Events:   msg.NewPublisher(pid),
	}, nil
}

// Run reads facts, solves the master and writes the dual facts to out. On failure the
// returned Iteration holds whatever stages completed.
func (r *Runner) Run(ctx context.Context, facts io.Reader, out io.Writer) (*Iteration, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return nil, errors.Wrap(err, "iteration id")
	}
	it := &Iteration{ID: id}

	log.Infof("[Iteration %s] reading facts", it.ID)
	it.Model, it.Parse, err = instance.Load(facts, r.Settings)
	if err != nil {
		return it, r.fail(it, err)
	}
	if n := len(it.Parse.Dropped); n > 0 {
		log.Warningf("[Iteration %s] dropped %d malformed facts", it.ID, n)
	}
	r.publish(msg.Parsed, it)

	log.Infof("[Iteration %s] solving master", it.ID)
	solveCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	it.Response, err = r.Solver.Solve(solveCtx, it.Model)
	if err != nil {
		return it, r.fail(it, err)
	}
	r.publish(msg.Solved, it)

	log.Infof("[Iteration %s] writing %d duals", it.ID, it.Response.Duals.Len())
	enc := r.Encoder
	if enc == nil {
		enc = duals.NewEncoder()
	}
	it.Warnings, err = enc.Encode(out, it.Response.Duals)
	if err != nil {
		return it, r.fail(it, err)
	}
	if n := len(it.Warnings); n > 0 {
		log.Warningf("[Iteration %s] %d duals lost precision", it.ID, n)
	}
	r.publish(msg.Written, it)
	return it, nil
}

func (r *Runner) publish(topic msg.Topic, it *Iteration) {
	if r.Events != nil {
		r.Events.Publish(topic, it)
	}
}

func (r *Runner) fail(it *Iteration, err error) error {
	log.Errorf("[Iteration %s] %v", it.ID, err)
	r.publish(msg.Failed, it)
	return err
}

// RunFile runs an iteration over the fact file at factsPath and replaces dualsPath with the
// result. dualsPath is left untouched when the iteration fails.
func (r *Runner) RunFile(ctx context.Context, factsPath, dualsPath string) (*Iteration, error) {
	f, err := os.Open(factsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", factsPath)
	}
	defer f.Close()

	var buf bytes.Buffer
	it, err := r.Run(ctx, f, &buf)
	if err != nil {
		return it, err
	}
	if err := ioutil.WriteFile(dualsPath, buf.Bytes(), 0644); err != nil {
		return it, errors.Wrapf(err, "write %s", dualsPath)
	}
	log.Infof("[Iteration %s] wrote %s", it.ID, dualsPath)
	return it, nil
}

// Watch logs every stage event published on p until the returned stop function is called.
// stop must be called once; it reports how many events were logged.
func Watch(p msg.Publisher) (stop func() int) {
	pid := uuid.New()
	merged := make(chan msg.Msg)
	var wg sync.WaitGroup
	for _, topic := range []msg.Topic{msg.Parsed, msg.Solved, msg.Written, msg.Failed} {
		wg.Add(1)
		go func(ch <-chan msg.Msg) {
			defer wg.Done()
			for m := range ch {
				merged <- m
			}
		}(p.Subscribe(pid, topic))
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	done := make(chan int)
	go func() {
		n := 0
		for m := range merged {
			if it, ok := m.Payload().(*Iteration); ok {
				log.V(1).Infof("[Iteration %s] %s", it.ID, m.Topic())
			}
			n++
		}
		done <- n
	}()

	return func() int {
		p.Unsubscribe(pid)
		return <-done
	}
}
