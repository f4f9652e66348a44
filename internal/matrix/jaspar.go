// Package matrix loads the binding models a run uses: JASPAR count
// matrices and IUPAC consensus patterns.
package matrix

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bifa-core/dna"
	"bifa-core/model"

	"bifa/internal/fasta"
)

// Matrix is one count matrix as read from disk; Counts is column-major.
type Matrix struct {
	ID     string
	Name   string
	Counts [][4]float64
}

// Label is the model name used in output.
func (m Matrix) Label() string {
	if m.Name == "" {
		return m.ID
	}
	return m.ID + "/" + m.Name
}

// ReadJASPAR parses JASPAR-style count matrices. Each entry is a '>' header
// followed by four rows, either bare numbers in A,C,G,T order or labelled
// rows such as "A [ 1 2 3 ]".
func ReadJASPAR(r io.Reader) ([]Matrix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var (
		out  []Matrix
		cur  *Matrix
		rows [4][]float64
		seen int
		ln   int
	)
	finish := func() error {
		if cur == nil {
			return nil
		}
		if seen != 4 {
			return fmt.Errorf("matrix %s: want 4 rows, got %d", cur.ID, seen)
		}
		w := len(rows[0])
		for b := 1; b < 4; b++ {
			if len(rows[b]) != w {
				return fmt.Errorf("matrix %s: ragged rows (%d vs %d columns)", cur.ID, w, len(rows[b]))
			}
		}
		if w == 0 {
			return fmt.Errorf("matrix %s: no columns", cur.ID)
		}
		cur.Counts = make([][4]float64, w)
		for i := range w {
			for b := range 4 {
				cur.Counts[i][b] = rows[b][i]
			}
		}
		out = append(out, *cur)
		cur, rows, seen = nil, [4][]float64{}, 0
		return nil
	}

	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line[0] == '>' {
			if err := finish(); err != nil {
				return nil, err
			}
			f := strings.Fields(line[1:])
			if len(f) == 0 {
				return nil, fmt.Errorf("line %d: empty matrix header", ln)
			}
			cur = &Matrix{ID: f[0], Name: strings.Join(f[1:], " ")}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: matrix row before header", ln)
		}
		if seen == 4 {
			return nil, fmt.Errorf("line %d: matrix %s has more than 4 rows", ln, cur.ID)
		}
		row, vals, err := parseRow(line, seen)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln, err)
		}
		if rows[row] != nil {
			return nil, fmt.Errorf("line %d: duplicate row for base %c", ln, "ACGT"[row])
		}
		rows[row] = vals
		seen++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseRow(line string, ordinal int) (int, []float64, error) {
	row := ordinal
	if c := line[0]; (c < '0' || c > '9') && c != '.' && c != '[' {
		row = dna.Index(c)
		if row < 0 {
			return 0, nil, fmt.Errorf("unknown row label %q", c)
		}
		line = line[1:]
	}
	line = strings.NewReplacer("[", " ", "]", " ").Replace(line)
	f := strings.Fields(line)
	vals := make([]float64, len(f))
	for i, s := range f {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("bad count %q", s)
		}
		if v < 0 {
			return 0, nil, fmt.Errorf("negative count %v", v)
		}
		vals[i] = v
	}
	return row, vals, nil
}

// LoadJASPAR reads the matrices in path; gzip input is accepted.
func LoadJASPAR(path string) ([]Matrix, error) {
	rc, err := fasta.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	ms, err := ReadJASPAR(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}

// PSSMs converts count matrices to position-specific scoring matrices.
func PSSMs(ms []Matrix, opts ...model.PSSMOption) ([]*model.PSSM, error) {
	out := make([]*model.PSSM, 0, len(ms))
	for _, m := range ms {
		p, err := model.NewPSSM(m.Label(), m.Counts, opts...)
		if err != nil {
			return nil, fmt.Errorf("matrix %s: %w", m.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}
