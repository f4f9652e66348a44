package cmdutil

import (
	"context"

	"bifa/internal/fasta"
	"bifa/internal/output"
	"bifa/internal/pipeline"
)

// Totals sums the per-record results of a run.
type Totals struct {
	Records  int
	Hits     int
	Adjusted int
	Skipped  int
}

// RunStream runs the shared pipeline, turns each analysis into a report and
// hands it to send in input order. It returns the totals so far and the
// first error encountered.
func RunStream(
	ctx context.Context,
	cfg pipeline.Config,
	records <-chan fasta.Record,
	analyze pipeline.Analyzer,
	send func(output.Report) error,
) (Totals, error) {
	var t Totals
	err := pipeline.ForEachRecord(ctx, cfg, records, analyze, func(a pipeline.Analysis) error {
		rep := output.Report{
			SequenceID: a.Record.ID,
			Seq:        a.Record.Seq,
			Hits:       a.Result.Hits,
			Adjusted:   a.Result.Adjusted,
			Skipped:    a.Result.SkippedCount(),
		}
		if err := send(rep); err != nil {
			return err
		}
		t.Records++
		t.Hits += rep.Hits.Len()
		t.Adjusted += rep.Adjusted
		t.Skipped += rep.Skipped
		return nil
	})
	return t, err
}
