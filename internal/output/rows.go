package output

import (
	"fmt"
	"iter"
	"slices"
	"strconv"

	"bifa-core/dna"
	"bifa-core/hits"
	"bifa-core/model"

	"bifa/pkg/api"
)

// Namer resolves binder ids to model names. *universe.Universe implements it.
type Namer interface {
	Name(id model.BinderID) string
}

// Report is the analysis of one central sequence, ready to render.
type Report struct {
	SequenceID string
	Seq        []byte
	Hits       *hits.Set
	Adjusted   int
	Skipped    int
}

// Summary returns the per-sequence counts.
func (r Report) Summary() api.SummaryV1 {
	s := api.SummaryV1{SequenceID: r.SequenceID, Length: len(r.Seq), Adjusted: r.Adjusted, Skipped: r.Skipped}
	if r.Hits != nil {
		s.Hits = r.Hits.Len()
		s.Binders = int(r.Hits.Binders().GetCardinality())
	}
	return s
}

func ordered(set *hits.Set, order string) (iter.Seq[hits.Hit], error) {
	switch order {
	case "", SortPosition:
		return set.ByPosition(), nil
	case SortBinder:
		return set.ByBinder(), nil
	case SortProbability:
		hs := slices.Collect(set.ByProbability())
		slices.Reverse(hs)
		return slices.Values(hs), nil
	}
	return nil, fmt.Errorf("unknown sort order %q", order)
}

// Rows converts the report's hits to wire rows in the requested order.
func (r Report) Rows(names Namer, order string) ([]api.HitV1, error) {
	if r.Hits == nil {
		return nil, nil
	}
	seq, err := ordered(r.Hits, order)
	if err != nil {
		return nil, err
	}
	out := make([]api.HitV1, 0, r.Hits.Len())
	for h := range seq {
		out = append(out, ToAPIHit(r.SequenceID, r.Seq, h, names))
	}
	return out, nil
}

// ToAPIHit converts a domain hit to the stable wire schema (v1). The site is
// read on the hit's strand; it is omitted when seq does not cover the hit.
func ToAPIHit(seqID string, seq []byte, h hits.Hit, names Namer) api.HitV1 {
	v := api.HitV1{
		SequenceID:  seqID,
		BinderID:    uint32(h.Binder),
		Binder:      h.Binder.String(),
		Start:       h.Position,
		End:         h.End(),
		Length:      h.Length,
		Strand:      "+",
		Probability: h.P,
	}
	if names != nil {
		v.Binder = names.Name(h.Binder)
	}
	if h.Complementary {
		v.Strand = "-"
	}
	if h.Position >= 0 && h.End() <= len(seq) {
		site := seq[h.Position:h.End()]
		if h.Complementary {
			v.Site = string(dna.RevComp(site))
		} else {
			v.Site = string(site)
		}
	}
	return v
}

// FormatRowTSV renders one row without a trailing newline.
func FormatRowTSV(v api.HitV1) string {
	return fmt.Sprintf("%s\t%d\t%s\t%d\t%d\t%d\t%s\t%s\t%s",
		v.SequenceID, v.BinderID, v.Binder,
		v.Start, v.End, v.Length, v.Strand,
		strconv.FormatFloat(v.Probability, 'g', 6, 64), v.Site,
	)
}
