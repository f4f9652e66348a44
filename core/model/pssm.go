package model

import (
	"fmt"
	"math"

	"bifa-core/dna"
)

// UniformBackground is the equiprobable A/C/G/T distribution.
var UniformBackground = [4]float64{0.25, 0.25, 0.25, 0.25}

// PSSM is a position-specific scoring matrix built from per-column base
// counts. Columns are ordered 5'→3'; each column holds A,C,G,T counts.
//
// A PSSM is immutable after NewPSSM and safe for concurrent use.
type PSSM struct {
	name       string
	counts     [][4]float64
	background [4]float64

	freqs   [][4]float64 // pseudocount-corrected column frequencies
	weights [][4]float64 // log2(freq/background)
	info    []float64    // per-column information content (bits)

	colMin, colMax []float64
	min, max       float64

	simMin, simMax float64
}

// PSSMOption customises NewPSSM.
type PSSMOption func(*pssmOptions)

type pssmOptions struct {
	pseudocount float64
	background  [4]float64
}

// WithPseudocount sets the total pseudocount spread over the four bases in
// proportion to the background (default 1, Laplace-style).
func WithPseudocount(pc float64) PSSMOption {
	return func(o *pssmOptions) { o.pseudocount = pc }
}

// WithBackground sets the background base distribution (default uniform).
func WithBackground(bg [4]float64) PSSMOption {
	return func(o *pssmOptions) { o.background = bg }
}

// NewPSSM validates counts and derives frequencies and log-odds weights.
func NewPSSM(name string, counts [][4]float64, opts ...PSSMOption) (*PSSM, error) {
	o := pssmOptions{pseudocount: 1, background: UniformBackground}
	for _, fn := range opts {
		fn(&o)
	}
	if len(counts) == 0 {
		return nil, &ConfigurationError{Field: "width", Value: 0}
	}
	if o.pseudocount < 0 || math.IsNaN(o.pseudocount) {
		return nil, &ConfigurationError{Field: "pseudocount", Value: o.pseudocount}
	}
	sum := 0.0
	for _, b := range o.background {
		if !(b > 0) {
			return nil, &ConfigurationError{Field: "background", Value: o.background}
		}
		sum += b
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, &ConfigurationError{Field: "background", Value: o.background}
	}

	w := len(counts)
	p := &PSSM{
		name:       name,
		counts:     make([][4]float64, w),
		background: o.background,
		freqs:      make([][4]float64, w),
		weights:    make([][4]float64, w),
		info:       make([]float64, w),
		colMin:     make([]float64, w),
		colMax:     make([]float64, w),
	}
	copy(p.counts, counts)

	for i, col := range counts {
		total := 0.0
		for _, c := range col {
			if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
				return nil, &ConfigurationError{Field: fmt.Sprintf("counts[%d]", i), Value: col}
			}
			total += c
		}
		if total+o.pseudocount <= 0 {
			return nil, &ConfigurationError{Field: fmt.Sprintf("counts[%d]", i), Value: col}
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		fLo, fHi := math.Inf(1), math.Inf(-1)
		for b := 0; b < 4; b++ {
			f := (col[b] + o.pseudocount*o.background[b]) / (total + o.pseudocount)
			p.freqs[i][b] = f
			wt := math.Inf(-1)
			if f > 0 {
				wt = math.Log2(f / o.background[b])
				p.info[i] += f * wt
			}
			p.weights[i][b] = wt
			lo, hi = math.Min(lo, wt), math.Max(hi, wt)
			fLo, fHi = math.Min(fLo, f), math.Max(fHi, f)
		}
		if math.IsInf(lo, -1) {
			// A zero-frequency base (pseudocount 0) would make the score
			// unbounded below; floor it at the worst finite weight.
			lo = finiteFloor(p.weights[i])
			for b := range p.weights[i] {
				if math.IsInf(p.weights[i][b], -1) {
					p.weights[i][b] = lo
				}
			}
		}
		p.colMin[i], p.colMax[i] = lo, hi
		p.min += lo
		p.max += hi
		p.simMin += p.info[i] * fLo
		p.simMax += p.info[i] * fHi
	}
	return p, nil
}

func finiteFloor(ws [4]float64) float64 {
	lo := math.Inf(1)
	for _, w := range ws {
		if !math.IsInf(w, -1) && w < lo {
			lo = w
		}
	}
	if math.IsInf(lo, 1) {
		return 0
	}
	return lo - 10
}

func (p *PSSM) Name() string { return p.name }
func (p *PSSM) Width() int   { return len(p.counts) }

// Background returns the background distribution the weights were built for.
func (p *PSSM) Background() [4]float64 { return p.background }

// Freq returns the corrected frequency of base b (0..3) in column i.
func (p *PSSM) Freq(i, b int) float64 { return p.freqs[i][b] }

// Weight returns the log-odds weight of base b (0..3) in column i.
func (p *PSSM) Weight(i, b int) float64 { return p.weights[i][b] }

// ColumnRange returns the minimum and maximum weight of column i.
func (p *PSSM) ColumnRange(i int) (lo, hi float64) { return p.colMin[i], p.colMax[i] }

// ScoreRange returns the minimum and maximum raw score.
func (p *PSSM) ScoreRange() (lo, hi float64) { return p.min, p.max }

// InformationContent returns the information content of column i in bits.
func (p *PSSM) InformationContent(i int) float64 { return p.info[i] }

// Consensus returns the most frequent base of each column.
func (p *PSSM) Consensus() string {
	out := make([]byte, p.Width())
	for i, f := range p.freqs {
		best := 0
		for b := 1; b < 4; b++ {
			if f[b] > f[best] {
				best = b
			}
		}
		out[i] = "ACGT"[best]
	}
	return string(out)
}

// base returns the base index scored against column i, reading the window in
// reverse complement when complementary is set. -1 marks an ambiguous symbol.
func (p *PSSM) base(window []byte, i int, complementary bool) int {
	if complementary {
		return dna.Index(dna.Complement(window[p.Width()-1-i]))
	}
	return dna.Index(window[i])
}

// RawScore sums log-odds weights over the window. Ambiguous symbols
// contribute the background expectation of the column.
func (p *PSSM) RawScore(window []byte, complementary bool) float64 {
	s := 0.0
	for i := range p.weights {
		if b := p.base(window, i, complementary); b >= 0 {
			s += p.weights[i][b]
			continue
		}
		for b := 0; b < 4; b++ {
			s += p.background[b] * p.weights[i][b]
		}
	}
	return s
}

// NormalizedScore maps RawScore linearly onto [0,1] using the matrix's
// minimum and maximum attainable scores. A flat matrix scores 0.
func (p *PSSM) NormalizedScore(window []byte, complementary bool) float64 {
	return normalize(p.RawScore(window, complementary), p.min, p.max)
}

// Similarity is the information-weighted matrix similarity of the Match
// algorithm: Σ I_i·f_i(b_i), normalised to [0,1].
func (p *PSSM) Similarity(window []byte, complementary bool) float64 {
	s := 0.0
	for i := range p.freqs {
		if b := p.base(window, i, complementary); b >= 0 {
			s += p.info[i] * p.freqs[i][b]
			continue
		}
		for b := 0; b < 4; b++ {
			s += p.info[i] * p.background[b] * p.freqs[i][b]
		}
	}
	return normalize(s, p.simMin, p.simMax)
}

func normalize(s, lo, hi float64) float64 {
	if !(hi > lo) {
		return 0
	}
	v := (s - lo) / (hi - lo)
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
