package output

import (
	"bufio"
	"io"

	"bifa/pkg/api"
)

// WriteText prints rows as TSV, optionally preceded by TSVHeader.
func WriteText(w io.Writer, rows []api.HitV1, header bool) error {
	bw := bufio.NewWriter(w)
	if header {
		if _, err := bw.WriteString(TSVHeader + "\n"); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if _, err := bw.WriteString(FormatRowTSV(r) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
