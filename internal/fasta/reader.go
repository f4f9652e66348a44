// Package fasta reads nucleotide FASTA, plain or gzip-compressed.
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Record is one FASTA entry. Seq is upper-case with line breaks removed.
type Record struct {
	ID   string
	Desc string
	Seq  []byte
}

var gzipMagic = []byte{0x1f, 0x8b}

// Open opens path for reading; "-" is stdin. Gzip input is detected from
// its magic bytes, not the file name.
func Open(path string) (io.ReadCloser, error) {
	f := io.NopCloser(os.Stdin)
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		f = fh
	}
	br := bufio.NewReaderSize(f, 64<<10)
	head, _ := br.Peek(2)
	if !bytes.Equal(head, gzipMagic) {
		return struct {
			io.Reader
			io.Closer
		}{br, f}, nil
	}
	gr, err := gzip.NewReader(br)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{gr, closers{gr, f}}, nil
}

type closers []io.Closer

func (cs closers) Close() error {
	var errs []error
	for _, c := range cs {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Reader yields records one at a time.
type Reader struct {
	br      *bufio.Reader
	pending []byte // header line of the next record
	line    int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

func (r *Reader) readLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if len(line) > 0 {
		r.line++
		return bytes.TrimRight(line, "\r\n"), nil
	}
	return nil, err
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	header := r.pending
	r.pending = nil
	for header == nil {
		line, err := r.readLine()
		if err != nil {
			return Record{}, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == ';' {
			continue
		}
		if line[0] != '>' {
			return Record{}, fmt.Errorf("fasta: line %d: sequence data before the first header", r.line)
		}
		header = line
	}

	var rec Record
	name := bytes.TrimSpace(header[1:])
	if i := bytes.IndexAny(name, " \t"); i >= 0 {
		rec.ID, rec.Desc = string(name[:i]), string(bytes.TrimSpace(name[i+1:]))
	} else {
		rec.ID = string(name)
	}
	if rec.ID == "" {
		return Record{}, fmt.Errorf("fasta: line %d: empty record id", r.line)
	}

	for {
		line, err := r.readLine()
		if err == io.EOF {
			return rec, nil
		}
		if err != nil {
			return Record{}, err
		}
		if len(line) > 0 && line[0] == '>' {
			r.pending = line
			return rec, nil
		}
		for _, c := range line {
			switch {
			case c >= 'a' && c <= 'z':
				rec.Seq = append(rec.Seq, c-'a'+'A')
			case c >= 'A' && c <= 'Z':
				rec.Seq = append(rec.Seq, c)
			case c == ' ' || c == '\t' || c == '-' || c == '*' || c == '.':
			default:
				return Record{}, fmt.Errorf("fasta: line %d: invalid residue %q in %s", r.line, c, rec.ID)
			}
		}
	}
}

// ReadFile loads every record of path.
func ReadFile(path string) ([]Record, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var out []Record
	r := NewReader(rc)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, rec)
	}
}

// Stream reads path in a goroutine. The error channel yields exactly one
// value (nil on success) after the record channel is closed.
func Stream(ctx context.Context, path string) (<-chan Record, <-chan error) {
	out := make(chan Record, 4)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := func() error {
			defer close(out)
			rc, err := Open(path)
			if err != nil {
				return err
			}
			defer rc.Close()
			r := NewReader(rc)
			for {
				rec, err := r.Next()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}()
		done <- err
	}()
	return out, done
}

// StreamFiles streams the records of every path in order, as Stream does for
// one. Reading stops at the first failing file.
func StreamFiles(ctx context.Context, paths []string) (<-chan Record, <-chan error) {
	out := make(chan Record, 4)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := func() error {
			defer close(out)
			for _, p := range paths {
				ch, errc := Stream(ctx, p)
				for rec := range ch {
					select {
					case out <- rec:
					case <-ctx.Done():
						for range ch {
						}
						<-errc
						return ctx.Err()
					}
				}
				if err := <-errc; err != nil {
					return err
				}
			}
			return nil
		}()
		done <- err
	}()
	return out, done
}
