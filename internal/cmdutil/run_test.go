package cmdutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifa-core/bifa"
	"bifa-core/hits"

	"bifa/internal/fasta"
	"bifa/internal/output"
	"bifa/internal/pipeline"
)

func records(ids ...string) <-chan fasta.Record {
	ch := make(chan fasta.Record, len(ids))
	for _, id := range ids {
		ch <- fasta.Record{ID: id, Seq: []byte("ACGTACGT")}
	}
	close(ch)
	return ch
}

func analyze(_ context.Context, rec fasta.Record) (*bifa.Result, error) {
	set := hits.NewSet(0)
	if err := set.Insert(hits.Hit{Binder: 1, P: 0.7, Position: 0, Length: 4}); err != nil {
		return nil, err
	}
	return &bifa.Result{Hits: set, Adjusted: 1, Skipped: []bifa.SkippedModel{{Binder: 2}}}, nil
}

func TestRunStream_Totals(t *testing.T) {
	var got []string
	tot, err := RunStream(context.Background(), pipeline.Config{Threads: 2}, records("x", "y", "z"), analyze,
		func(r output.Report) error {
			got = append(got, r.SequenceID)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, got)
	assert.Equal(t, Totals{Records: 3, Hits: 3, Adjusted: 3, Skipped: 3}, tot)
}

func TestRunStream_SendError(t *testing.T) {
	full := errors.New("full")
	tot, err := RunStream(context.Background(), pipeline.Config{Threads: 1}, records("x", "y"), analyze,
		func(output.Report) error { return full })
	require.ErrorIs(t, err, full)
	assert.Equal(t, 0, tot.Records)
}
