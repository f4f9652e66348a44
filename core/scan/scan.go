// Package scan slides a binding model across a sequence, scoring every window
// on the forward strand and, optionally, on the reverse complement.
package scan

import (
	"iter"

	"bifa-core/dna"
	"bifa-core/hits"
	"bifa-core/model"
)

// Options configures a scan.
type Options struct {
	Threshold  float64        // hits need p > Threshold
	Complement bool           // also score the reverse-complement strand
	Start      int            // first window position; negative means 0
	Context    *model.Context // handed to every Score call
	Stats      *Stats         // optional counters, filled as the scan runs
}

// Stats counts what a scan did. It is not safe for concurrent scans.
type Stats struct {
	Evaluations int // Score calls
	Ambiguous   int // windows skipped for ambiguity codes
	Hits        int // hits yielded
}

// Scan returns a lazy, single-pass sequence of hits for m over seq.
//
// At most one hit is produced per (position, strand). If the model fails, the
// failure is yielded once as a *model.ScoringError and the scan stops. A
// sequence shorter than the model yields nothing.
func Scan(m model.Model, seq []byte, opt Options) iter.Seq2[hits.Hit, error] {
	return func(yield func(hits.Hit, error) bool) {
		w := m.Width()
		if w <= 0 {
			return
		}
		tolerant := model.AcceptsAmbiguous(m)
		st := opt.Stats
		if st == nil {
			st = &Stats{}
		}

		strands := []bool{false}
		if opt.Complement {
			strands = append(strands, true)
		}

		for pos := max(opt.Start, 0); len(seq)-pos >= w; pos++ {
			window := seq[pos : pos+w]
			if !tolerant && !dna.IsUnambiguous(window) {
				st.Ambiguous++
				continue
			}
			for _, comp := range strands {
				st.Evaluations++
				p, err := m.Score(window, comp, opt.Context)
				if err == nil {
					err = model.CheckProbability(m.ID(), "score", p)
				}
				if err != nil {
					yield(hits.Hit{}, &model.ScoringError{Binder: m.ID(), Name: m.Name(), Err: err})
					return
				}
				if p <= opt.Threshold {
					continue
				}
				st.Hits++
				h := hits.Hit{Binder: m.ID(), P: p, Position: pos, Length: w, Complementary: comp}
				if !yield(h, nil) {
					return
				}
			}
		}
	}
}

// Collect drains Scan into a slice.
func Collect(m model.Model, seq []byte, opt Options) ([]hits.Hit, error) {
	var out []hits.Hit
	for h, err := range Scan(m, seq, opt) {
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// PBindsAtLeastOnce scans seq and summarises the hits of m as the
// probability that m binds anywhere in it.
func PBindsAtLeastOnce(m model.Model, seq []byte, opt Options) (float64, error) {
	miss := 1.0
	for h, err := range Scan(m, seq, opt) {
		if err != nil {
			return 0, err
		}
		miss *= 1 - h.P
	}
	return 1 - miss, nil
}

// Evaluations returns how many windows a full scan scores: L-W+1 per strand,
// 0 when the sequence is shorter than the model.
func Evaluations(seqLen, width int, complement bool) int {
	if width <= 0 || seqLen < width {
		return 0
	}
	n := seqLen - width + 1
	if complement {
		n *= 2
	}
	return n
}
