package config

import (
	"testing"
	"time"

	"github.com/ohowland/lno_core/internal/pkg/instance"
	"github.com/ohowland/lno_core/internal/pkg/solve"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

func TestNewReadsFile(t *testing.T) {
	file := fs.NewFile(t, "lno", fs.WithContent(`{
	"BigM": 5000,
	"Scale": 100,
	"Tolerance": 0.005,
	"Settings": {"co2Costs": 20, "capitalCosts": 0.5},
	"Solver": {"Mode": "subprocess", "Path": "./lno_rmp_stdin", "Args": ["-v"], "Timeout": "30s"},
	"FactsPath": "instance.lp"
}`))
	defer file.Remove()

	c, err := New(file.Path())
	assert.NilError(t, err)
	assert.Equal(t, c.BigM, 5000.0)
	assert.Equal(t, c.Settings, instance.Settings{CO2Costs: 20, CapitalCosts: 0.5})
	assert.Equal(t, c.FactsPath, "instance.lp")
	assert.Equal(t, c.DualsPath, "duals_out.lp")

	d, err := c.Timeout()
	assert.NilError(t, err)
	assert.Equal(t, d, 30*time.Second)

	sp, ok := c.NewSolver().(*solve.Subprocess)
	assert.Assert(t, ok)
	assert.DeepEqual(t, sp.Args, []string{"-v"})

	e := c.Encoder()
	assert.Equal(t, e.Scale, int64(100))
	assert.Equal(t, e.MaxAbs, int64(2147483647))
	assert.Equal(t, e.Tolerance, 0.005)
}

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte(`{}`))
	assert.NilError(t, err)
	assert.DeepEqual(t, c, Default())

	ip, ok := c.NewSolver().(*solve.InProcess)
	assert.Assert(t, ok)
	assert.Equal(t, ip.BigM, 1e6)
	d, err := c.Timeout()
	assert.NilError(t, err)
	assert.Equal(t, d, time.Duration(0))
}

func TestRejects(t *testing.T) {
	cases := map[string]string{
		`{"BigM": 0}`:                                       "BigM must be positive",
		`{"Scale": -1}`:                                     "Scale must be positive",
		`{"Tolerance": -0.1}`:                               "Tolerance must not be negative",
		`{"Solver": {"Mode": "grpc"}}`:                      `unknown solver mode "grpc"`,
		`{"Solver": {"Mode": "subprocess"}}`:                "needs a Path",
		`{"Solver": {"Mode": "inprocess", "Timeout": "x"}}`: "solver timeout",
		`{"BigM": "big"}`:                                   "decode config",
	}
	for src, want := range cases {
		_, err := Parse([]byte(src))
		assert.ErrorContains(t, err, want, src)
	}

	_, err := New("/nonexistent/lno.json")
	assert.Assert(t, err != nil)
}
