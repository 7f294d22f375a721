package duals

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"os"
	"strings"

	log "github.com/golang/glog"
	"github.com/ohowland/lno_core/internal/pkg/fact"
	"github.com/pkg/errors"
)

const (
	// DefaultScale turns dual prices into integers with three decimals kept.
	DefaultScale int64 = 1000
	// DefaultMaxAbs is the largest integer the grounder accepts.
	DefaultMaxAbs int64 = math.MaxInt32

	// twoTo63 is the smallest float64 magnitude outside the int64 range.
	twoTo63 = 1 << 63
)

// Warning reports a dual value that could not be written faithfully.
type Warning struct {
	Predicate string
	Key       string
	Value     float64
	Written   int64
	Reason    string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s(%s): %v written as %d: %s", w.Predicate, w.Key, w.Value, w.Written, w.Reason)
}

// Encoder scales dual values to integers. The zero value is not usable; see NewEncoder.
type Encoder struct {
	Scale  int64
	MaxAbs int64
	// Tolerance is the largest acceptable |v - V/Scale|. Zero disables the check.
	Tolerance float64
}

func NewEncoder() *Encoder {
	return &Encoder{Scale: DefaultScale, MaxAbs: DefaultMaxAbs}
}

// Scaled returns round(v * Scale), rounding half away from zero, and a warning when the
// result was clamped or lost more than Tolerance.
func (e *Encoder) Scaled(v float64) (int64, string) {
	s := float64(e.Scale)
	limit := e.MaxAbs
	if limit <= 0 {
		limit = DefaultMaxAbs
	}

	switch {
	case math.IsNaN(v):
		return 0, "not a number"
	case math.IsInf(v, 1):
		return limit, "positive infinity clamped"
	case math.IsInf(v, -1):
		return -limit, "negative infinity clamped"
	}

	// float64(limit) may round above limit, so the bound is checked on integers.
	r := math.Round(v * s)
	switch {
	case r >= twoTo63 || (r > -twoTo63 && int64(r) > limit):
		return limit, fmt.Sprintf("overflow clamped to %d", limit)
	case r <= -twoTo63 || int64(r) < -limit:
		return -limit, fmt.Sprintf("overflow clamped to %d", -limit)
	}
	n := int64(r)
	if e.Tolerance > 0 {
		if loss := math.Abs(v - r/s); loss > e.Tolerance {
			return n, fmt.Sprintf("precision loss %g exceeds %g", loss, e.Tolerance)
		}
	}
	return n, ""
}

// Encode writes one phi fact per conservation dual and then one dualCover fact per
// coverage dual, each block in key order.
func (e *Encoder) Encode(w io.Writer, d Duals) ([]Warning, error) {
	if e.Scale <= 0 {
		return nil, errors.Errorf("scale must be positive, got %d", e.Scale)
	}

	var warnings []Warning
	check := func(pred, key string, v float64) int64 {
		n, reason := e.Scaled(v)
		if reason != "" {
			wn := Warning{Predicate: pred, Key: key, Value: v, Written: n, Reason: reason}
			log.Warningf("[Duals] %s", wn)
			warnings = append(warnings, wn)
		}
		return n
	}

	bw := bufio.NewWriter(w)
	for _, k := range d.PhiKeys() {
		f := fact.Phi{Location: k.Location, Part: k.Product, Value: check("phi", k.String(), d.Phi[k])}
		if _, err := fmt.Fprintln(bw, fact.Format(f)); err != nil {
			return warnings, errors.Wrap(err, "write phi")
		}
	}
	for _, k := range d.CoverKeys() {
		f := fact.DualCover{Route: k.Route(), Part: k.Product, Value: check("dualCover", k.String(), d.Cover[k])}
		if _, err := fmt.Fprintln(bw, fact.Format(f)); err != nil {
			return warnings, errors.Wrap(err, "write dualCover")
		}
	}
	if err := bw.Flush(); err != nil {
		return warnings, errors.Wrap(err, "flush duals")
	}
	log.V(1).Infof("[Duals] wrote %d phi and %d dualCover facts at scale %d", len(d.Phi), len(d.Cover), e.Scale)
	return warnings, nil
}

// WriteFile replaces the file at path with the encoded duals.
func (e *Encoder) WriteFile(path string, d Duals) ([]Warning, error) {
	var buf bytes.Buffer
	warnings, err := e.Encode(&buf, d)
	if err != nil {
		return warnings, err
	}
	if err := ioutil.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return warnings, errors.Wrapf(err, "write %s", path)
	}
	return warnings, nil
}

// Decode reads phi and dualCover facts and divides their values by scale. Other facts are
// ignored; malformed lines are an error.
func Decode(r io.Reader, scale int64) (Duals, error) {
	if scale <= 0 {
		return Duals{}, errors.Errorf("scale must be positive, got %d", scale)
	}
	res, err := fact.Parse(r)
	if err != nil {
		return Duals{}, err
	}
	if len(res.Dropped) > 0 {
		return Duals{}, errors.Wrap(res.Dropped[0], "decode duals")
	}

	d := New()
	s := float64(scale)
	for _, f := range res.Facts {
		switch f := f.(type) {
		case fact.Phi:
			d.Phi[PhiKey{Location: f.Location, Product: f.Part}] = float64(f.Value) / s
		case fact.DualCover:
			i := strings.Index(f.Route, "->")
			if i < 0 {
				return Duals{}, errors.Errorf("dualCover route %q has no ->", f.Route)
			}
			k := CoverKey{From: f.Route[:i], To: f.Route[i+2:], Product: f.Part}
			d.Cover[k] = float64(f.Value) / s
		}
	}
	return d, nil
}

// ReadFile decodes the duals stored at path.
func ReadFile(path string, scale int64) (Duals, error) {
	f, err := os.Open(path)
	if err != nil {
		return Duals{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return Decode(f, scale)
}
