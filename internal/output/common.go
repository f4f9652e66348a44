package output

// Output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Hit orders. Probability order is highest first.
const (
	SortPosition    = "position"
	SortBinder      = "binder"
	SortProbability = "probability"
)

// TSVHeader is the canonical header row for text/TSV outputs.
// Keep this as the single source of truth; all writers should use it.
const TSVHeader = "sequence_id\tbinder_id\tbinder\tstart\tend\tlength\tstrand\tp_binding\tsite"
