package writers

import (
	"fmt"
	"io"
	"sort"

	json "github.com/goccy/go-json"

	"bifa/internal/jsonlutil"
	"bifa/internal/output"
	"bifa/pkg/api"
)

// Settings are shared by every report writer.
type Settings struct {
	Sort   string
	Header bool
	Names  output.Namer
}

// Factory starts a writer goroutine for one format.
type Factory func(out io.Writer, s Settings, bufSize int) (chan<- output.Report, <-chan error)

var registry = map[string]Factory{
	output.FormatText:  startText,
	output.FormatJSON:  startJSON,
	output.FormatJSONL: startJSONL,
}

// Formats lists the registered format names.
func Formats() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Start dispatches to the writer registered for format. An unknown format
// yields a writer that drains its input and reports the error.
func Start(out io.Writer, format string, s Settings, bufSize int) (chan<- output.Report, <-chan error) {
	if f, ok := registry[format]; ok {
		return f(out, s, bufSize)
	}
	return failing(fmt.Errorf("unknown report format %q (no writer registered)", format), bufSize)
}

func failing(err error, bufSize int) (chan<- output.Report, <-chan error) {
	in := make(chan output.Report, max(bufSize, 1))
	done := make(chan error, 1)
	go func() {
		for range in {
		}
		done <- err
	}()
	return in, done
}

// drain keeps consuming after a failure so the producer never blocks.
func drain(in <-chan output.Report) {
	for range in {
	}
}

// startText streams TSV as reports arrive; the header is written once.
func startText(out io.Writer, s Settings, bufSize int) (chan<- output.Report, <-chan error) {
	in := make(chan output.Report, max(bufSize, 1))
	done := make(chan error, 1)
	go func() {
		header := s.Header
		for rep := range in {
			rows, err := rep.Rows(s.Names, s.Sort)
			if err == nil {
				err = output.WriteText(out, rows, header)
			}
			if err != nil {
				drain(in)
				done <- err
				return
			}
			header = false
		}
		if header {
			// No reports at all: still emit the header for consumers that expect it.
			if err := output.WriteText(out, nil, true); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	return in, done
}

// startJSON buffers every report and writes one array.
func startJSON(out io.Writer, s Settings, bufSize int) (chan<- output.Report, <-chan error) {
	in := make(chan output.Report, max(bufSize, 1))
	done := make(chan error, 1)
	go func() {
		var all []api.HitV1
		for rep := range in {
			rows, err := rep.Rows(s.Names, s.Sort)
			if err != nil {
				drain(in)
				done <- err
				return
			}
			all = append(all, rows...)
		}
		done <- output.WriteJSON(out, all)
	}()
	return in, done
}

// startJSONL writes one line per hit.
func startJSONL(out io.Writer, s Settings, bufSize int) (chan<- output.Report, <-chan error) {
	return jsonlutil.Start[output.Report](out, bufSize,
		func(enc *json.Encoder, rep output.Report) error {
			rows, err := rep.Rows(s.Names, s.Sort)
			if err != nil {
				return err
			}
			for _, r := range rows {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
		IsBrokenPipe,
	)
}
