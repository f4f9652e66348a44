package fasta

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plain = `; comment
>seq1 first record
ACGT
acgt
>seq2
NNnn

>seq3
`

func writeFile(t *testing.T, name, data string, gz bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	fh, err := os.Create(path)
	require.NoError(t, err)
	defer fh.Close()
	if !gz {
		_, err = io.WriteString(fh, data)
		require.NoError(t, err)
		return path
	}
	gw := gzip.NewWriter(fh)
	_, err = io.WriteString(gw, data)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return path
}

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(plain))
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "seq1", rec.ID)
	assert.Equal(t, "first record", rec.Desc)
	assert.Equal(t, "ACGTACGT", string(rec.Seq))

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "seq2", rec.ID)
	assert.Equal(t, "NNNN", string(rec.Seq))

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "seq3", rec.ID)
	assert.Empty(t, rec.Seq)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Rejects(t *testing.T) {
	_, err := NewReader(strings.NewReader("ACGT\n>x\nA\n")).Next()
	require.Error(t, err)

	_, err = NewReader(strings.NewReader(">x\nAC1T\n")).Next()
	require.ErrorContains(t, err, "invalid residue")

	_, err = NewReader(strings.NewReader(">\nACGT\n")).Next()
	require.ErrorContains(t, err, "empty record id")
}

func TestReadFile_GzipDetectedByContent(t *testing.T) {
	for _, gz := range []bool{false, true} {
		// The name never says .gz; detection is by magic bytes.
		path := writeFile(t, "input.fa", plain, gz)
		recs, err := ReadFile(path)
		require.NoError(t, err, "gz=%v", gz)
		require.Len(t, recs, 3)
		assert.Equal(t, "seq2", recs[1].ID)
	}
}

func TestStream(t *testing.T) {
	path := writeFile(t, "s.fa.gz", plain, true)
	ch, done := Stream(context.Background(), path)
	var ids []string
	for r := range ch {
		ids = append(ids, r.ID)
	}
	require.NoError(t, <-done)
	assert.Equal(t, []string{"seq1", "seq2", "seq3"}, ids)
}

func TestStream_MissingFile(t *testing.T) {
	ch, done := Stream(context.Background(), filepath.Join(t.TempDir(), "nope.fa"))
	for range ch {
	}
	require.Error(t, <-done)
}

func TestStreamStdin(t *testing.T) {
	orig := os.Stdin
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdin = r
	defer func() { os.Stdin = orig }()
	go func() { _, _ = io.WriteString(w, plain); _ = w.Close() }()

	recs, err := ReadFile("-")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestStreamFiles(t *testing.T) {
	a := writeFile(t, "a.fa", ">a1\nAC\n>a2\nGT\n", false)
	b := writeFile(t, "b.fa", ">b1\nTT\n", true)
	ch, done := StreamFiles(context.Background(), []string{a, b})
	var ids []string
	for r := range ch {
		ids = append(ids, r.ID)
	}
	require.NoError(t, <-done)
	assert.Equal(t, []string{"a1", "a2", "b1"}, ids)

	ch, done = StreamFiles(context.Background(), []string{a, filepath.Join(t.TempDir(), "missing.fa")})
	for range ch {
	}
	require.Error(t, <-done)
}
