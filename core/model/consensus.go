package model

import (
	"bytes"
	"math"

	"bifa-core/dna"
)

// ConsensusModel scores a window by its agreement with an IUPAC consensus
// sequence: (matching positions / width) ^ Power.
type ConsensusModel struct {
	id      BinderID
	name    string
	pattern []byte
	rc      []byte
	power   float64
}

// NewConsensus validates pattern and returns a ConsensusModel. power must be
// positive; 1 gives the plain fraction of matching positions.
func NewConsensus(id BinderID, name, pattern string, power float64) (*ConsensusModel, error) {
	if pattern == "" {
		return nil, &ConfigurationError{Field: "pattern", Value: pattern}
	}
	p := bytes.ToUpper([]byte(pattern))
	for _, c := range p {
		if dna.Mask(c) == 0 {
			return nil, &ConfigurationError{Field: "pattern", Value: pattern}
		}
	}
	if !(power > 0) || math.IsInf(power, 0) {
		return nil, &ConfigurationError{Field: "power", Value: power}
	}
	return &ConsensusModel{id: id, name: name, pattern: p, rc: dna.RevComp(p), power: power}, nil
}

func (m *ConsensusModel) ID() BinderID           { return m.id }
func (m *ConsensusModel) Name() string           { return m.name }
func (m *ConsensusModel) Width() int             { return len(m.pattern) }
func (m *ConsensusModel) Kind() Kind             { return KindConsensus }
func (m *ConsensusModel) AcceptsAmbiguous() bool { return true }
func (m *ConsensusModel) Pattern() string        { return string(m.pattern) }

// Score compares the window against the pattern, or against the pattern's
// reverse complement when complementary is set. Ambiguous window symbols
// count as mismatches.
func (m *ConsensusModel) Score(window []byte, complementary bool, _ *Context) (float64, error) {
	if err := CheckWindow(m, window); err != nil {
		return 0, err
	}
	pat := m.pattern
	if complementary {
		pat = m.rc
	}
	hit := 0
	for i, p := range pat {
		if dna.Matches(window[i], p) {
			hit++
		}
	}
	if hit == 0 {
		return 0, nil
	}
	return math.Pow(float64(hit)/float64(len(pat)), m.power), nil
}
