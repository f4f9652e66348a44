// Package likelihood turns a PSSM's score distribution into the two tables
// the Bayesian model needs: how likely a score at least this high is under
// the background hypothesis, and under the binding hypothesis.
package likelihood

import (
	"math"

	"bifa-core/model"
)

// DefaultResolution is the number of score units the [0,1] range is split into.
const DefaultResolution = 1000

// Table is a discretised tail distribution over normalised scores:
// tail[k] = P(score >= k/resolution). The resolution of a built table is the
// unit count of a perfect window, which may differ slightly from the requested
// one because every column's contribution is rounded.
type Table struct {
	tail []float64
}

// FromTail wraps precomputed tail probabilities. Values are not validated
// here; consumers check every looked-up value.
func FromTail(tail []float64) *Table {
	return &Table{tail: append([]float64(nil), tail...)}
}

// Resolution is the number of units the score range is divided into.
func (t *Table) Resolution() int { return len(t.tail) - 1 }

// Lookup returns the tail probability for a normalised score in [0,1].
func (t *Table) Lookup(score float64) float64 {
	if len(t.tail) == 0 {
		return 0
	}
	r := len(t.tail) - 1
	k := int(math.Round(score * float64(r)))
	switch {
	case k < 0 || math.IsNaN(score):
		k = 0
	case k > r:
		k = r
	}
	return t.tail[k]
}

// Tables pairs the two hypotheses' score distributions for one binder.
type Tables struct {
	Background *Table
	Binding    *Table
}

// Build computes both tables for p by exact convolution of the per-column
// score distributions: bases drawn from the background distribution for the
// background table, from the matrix's own column frequencies for the
// binding table.
func Build(p *model.PSSM, resolution int) (*Tables, error) {
	if p == nil {
		return nil, &model.ConfigurationError{Field: "pssm", Value: nil}
	}
	if resolution <= 0 {
		return nil, &model.ConfigurationError{Field: "resolution", Value: resolution}
	}

	lo, hi := p.ScoreRange()
	span := hi - lo
	w := p.Width()

	units := make([][4]int, w)
	total := 0 // units of a perfect window
	for i := 0; i < w; i++ {
		cmin, _ := p.ColumnRange(i)
		top := 0
		for b := 0; b < 4; b++ {
			if span > 0 {
				units[i][b] = int(math.Round((p.Weight(i, b) - cmin) / span * float64(resolution)))
			}
			top = max(top, units[i][b])
		}
		total += top
	}

	bg := p.Background()
	background := convolve(units, total, func(_, b int) float64 { return bg[b] })
	binding := convolve(units, total, p.Freq)
	return &Tables{Background: &Table{tail: background}, Binding: &Table{tail: binding}}, nil
}

// convolve returns tail probabilities over summed units 0..total.
func convolve(units [][4]int, total int, prob func(col, base int) float64) []float64 {
	dist := make([]float64, total+1)
	dist[0] = 1
	next := make([]float64, total+1)
	for i, col := range units {
		clear(next)
		for k, pk := range dist {
			if pk == 0 {
				continue
			}
			for b, u := range col {
				next[k+u] += pk * prob(i, b)
			}
		}
		dist, next = next, dist
	}

	tail := make([]float64, total+1)
	acc := 0.0
	for k := total; k >= 0; k-- {
		acc += dist[k]
		tail[k] = math.Min(acc, 1)
	}
	return tail
}
