package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifa-core/bifa"
	"bifa-core/hits"

	"bifa/internal/fasta"
)

func feed(n int) <-chan fasta.Record {
	ch := make(chan fasta.Record)
	go func() {
		defer close(ch)
		for i := range n {
			ch <- fasta.Record{ID: fmt.Sprintf("r%d", i), Seq: []byte("ACGT")}
		}
	}()
	return ch
}

func sleepy(ctx context.Context, rec fasta.Record) (*bifa.Result, error) {
	time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
	return &bifa.Result{Hits: hits.NewSet(0)}, ctx.Err()
}

func TestForEachRecord_PreservesInputOrder(t *testing.T) {
	var got []string
	err := ForEachRecord(context.Background(), Config{Threads: 8}, feed(100), sleepy,
		func(a Analysis) error {
			assert.Equal(t, len(got), a.Index)
			got = append(got, a.Record.ID)
			return nil
		})
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.Equal(t, "r0", got[0])
	assert.Equal(t, "r99", got[99])
}

func TestForEachRecord_AnalyzerErrorStops(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	err := ForEachRecord(context.Background(), Config{Threads: 2}, feed(1000),
		func(ctx context.Context, rec fasta.Record) (*bifa.Result, error) {
			if calls.Add(1) == 5 {
				return nil, boom
			}
			return &bifa.Result{Hits: hits.NewSet(0)}, nil
		},
		func(Analysis) error { return nil })
	require.ErrorIs(t, err, boom)
	assert.Less(t, int(calls.Load()), 1000)
}

func TestForEachRecord_VisitErrorWins(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := ForEachRecord(context.Background(), Config{Threads: 4}, feed(50), sleepy,
		func(Analysis) error {
			n++
			if n == 3 {
				return stop
			}
			return nil
		})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 3, n)
}

func TestForEachRecord_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ForEachRecord(ctx, Config{}, feed(10), sleepy, func(Analysis) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
