package instance

import (
	"io"

	"github.com/ohowland/lno_core/internal/pkg/fact"
)

// Load parses a fact source and builds its canonical model in one pass.
func Load(r io.Reader, settings Settings) (*Model, *fact.Result, error) {
	res, err := fact.Parse(r)
	if err != nil {
		return nil, res, err
	}
	acc := NewAccumulator()
	acc.AddAll(res.Facts)
	return acc.Build(settings), res, nil
}
