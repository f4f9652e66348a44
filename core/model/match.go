package model

// MatchScore selects the statistic a MatchModel reports.
type MatchScore uint8

const (
	// MatchSimilarity is the information-weighted matrix similarity.
	MatchSimilarity MatchScore = iota
	// MatchLogOdds is the min/max-normalised log-odds score.
	MatchLogOdds
)

// MatchModel is the deterministic legacy model: the normalised matrix score
// is reported directly as the probability of binding.
type MatchModel struct {
	id    BinderID
	pssm  *PSSM
	score MatchScore
}

// NewMatch returns a MatchModel over pssm.
func NewMatch(id BinderID, pssm *PSSM, score MatchScore) (*MatchModel, error) {
	if pssm == nil {
		return nil, &ConfigurationError{Field: "pssm", Value: nil}
	}
	if score != MatchSimilarity && score != MatchLogOdds {
		return nil, &ConfigurationError{Field: "score", Value: score}
	}
	return &MatchModel{id: id, pssm: pssm, score: score}, nil
}

func (m *MatchModel) ID() BinderID           { return m.id }
func (m *MatchModel) Name() string           { return m.pssm.Name() }
func (m *MatchModel) Width() int             { return m.pssm.Width() }
func (m *MatchModel) Kind() Kind             { return KindMatch }
func (m *MatchModel) AcceptsAmbiguous() bool { return true }
func (m *MatchModel) PSSM() *PSSM            { return m.pssm }

func (m *MatchModel) Score(window []byte, complementary bool, _ *Context) (float64, error) {
	if err := CheckWindow(m, window); err != nil {
		return 0, err
	}
	var s float64
	if m.score == MatchLogOdds {
		s = m.pssm.NormalizedScore(window, complementary)
	} else {
		s = m.pssm.Similarity(window, complementary)
	}
	if err := CheckProbability(m.id, "match score", s); err != nil {
		return 0, err
	}
	return s, nil
}
