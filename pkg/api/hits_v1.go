// pkg/api/hits_v1.go
package api

// HitV1 is the stable JSON/JSONL schema for one predicted binding site.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type HitV1 struct {
	SequenceID  string  `json:"sequence_id"`
	BinderID    uint32  `json:"binder_id"`
	Binder      string  `json:"binder"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Length      int     `json:"length"`
	Strand      string  `json:"strand"` // "+" | "-"
	Probability float64 `json:"p_binding"`
	Site        string  `json:"site,omitempty"`
}

// SummaryV1 describes one analysed central sequence.
type SummaryV1 struct {
	SequenceID string `json:"sequence_id"`
	Length     int    `json:"length"`
	Hits       int    `json:"hits"`
	Binders    int    `json:"binders"`
	Adjusted   int    `json:"adjusted"`
	Skipped    int    `json:"skipped"`
}
