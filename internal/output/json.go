package output

import (
	"io"

	json "github.com/goccy/go-json"

	"bifa/pkg/api"
)

// EncodePretty writes v as indented JSON to w.
func EncodePretty(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSON writes a single JSON array of v1 hits. A nil slice is written
// as an empty array.
func WriteJSON(w io.Writer, rows []api.HitV1) error {
	if rows == nil {
		rows = []api.HitV1{}
	}
	return EncodePretty(w, rows)
}
