package matrix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jaspar = `>MA0001.1 AGL3
A  [ 0  3 79 ]
C  [94 75  4 ]
G  [ 1  0  3 ]
T  [ 2 19 11 ]

# bare rows
>MA9999.1
1 0
0 1
0 0
3 3
`

func TestReadJASPAR(t *testing.T) {
	ms, err := ReadJASPAR(strings.NewReader(jaspar))
	require.NoError(t, err)
	require.Len(t, ms, 2)

	assert.Equal(t, "MA0001.1/AGL3", ms[0].Label())
	require.Len(t, ms[0].Counts, 3)
	assert.Equal(t, [4]float64{0, 94, 1, 2}, ms[0].Counts[0])
	assert.Equal(t, [4]float64{79, 4, 3, 11}, ms[0].Counts[2])

	assert.Equal(t, "MA9999.1", ms[1].Label())
	assert.Equal(t, [4]float64{0, 1, 0, 3}, ms[1].Counts[1])

	ps, err := PSSMs(ms)
	require.NoError(t, err)
	assert.Equal(t, "CCA", ps[0].Consensus())
	assert.Equal(t, 2, ps[1].Width())
}

func TestReadJASPAR_LabelledRowsInAnyOrder(t *testing.T) {
	ms, err := ReadJASPAR(strings.NewReader(">x\nT [1]\nG [2]\nC [3]\nA [4]\n"))
	require.NoError(t, err)
	assert.Equal(t, [4]float64{4, 3, 2, 1}, ms[0].Counts[0])
}

func TestReadJASPAR_Rejects(t *testing.T) {
	for name, in := range map[string]string{
		"row before header": "1 2\n",
		"three rows":        ">x\n1\n2\n3\n",
		"five rows":         ">x\n1\n2\n3\n4\n5\n",
		"ragged":            ">x\n1 2\n2\n3\n4\n",
		"bad number":        ">x\n1\nq\n3\n4\n",
		"negative":          ">x\n1\n-2\n3\n4\n",
		"bad label":         ">x\nA 1\nC 1\nG 1\nX 1\n",
		"duplicate label":   ">x\nA 1\nA 1\nG 1\nT 1\n",
		"empty header":      ">\n1\n2\n3\n4\n",
	} {
		_, err := ReadJASPAR(strings.NewReader(in))
		assert.Error(t, err, name)
	}
}

func TestLoadJASPAR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.jaspar")
	require.NoError(t, os.WriteFile(path, []byte(jaspar), 0o644))
	ms, err := LoadJASPAR(path)
	require.NoError(t, err)
	assert.Len(t, ms, 2)

	_, err = LoadJASPAR(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestParseConsensus(t *testing.T) {
	c, err := ParseConsensus("gata=wgataR")
	require.NoError(t, err)
	assert.Equal(t, Consensus{Name: "gata", Pattern: "WGATAR"}, c)

	c, err = ParseConsensus("TATAAA")
	require.NoError(t, err)
	assert.Equal(t, "TATAAA", c.Name)

	_, err = ParseConsensus("x=")
	require.Error(t, err)
	_, err = ParseConsensus("x=AC-T")
	require.Error(t, err)
}
