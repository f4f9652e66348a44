package matrix

import (
	"fmt"
	"strings"

	"bifa-core/dna"
)

// Consensus is a named IUPAC pattern.
type Consensus struct {
	Name    string
	Pattern string
}

// ParseConsensus reads "name=PATTERN". A bare pattern is its own name.
func ParseConsensus(s string) (Consensus, error) {
	name, pat, ok := strings.Cut(s, "=")
	if !ok {
		pat, name = name, ""
	}
	name, pat = strings.TrimSpace(name), strings.ToUpper(strings.TrimSpace(pat))
	if pat == "" {
		return Consensus{}, fmt.Errorf("consensus %q: empty pattern", s)
	}
	for i := 0; i < len(pat); i++ {
		if dna.Mask(pat[i]) == 0 {
			return Consensus{}, fmt.Errorf("consensus %q: %q is not an IUPAC code", s, pat[i])
		}
	}
	if name == "" {
		name = pat
	}
	return Consensus{Name: name, Pattern: pat}, nil
}
