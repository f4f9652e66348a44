package dna

var complement [256]byte

func init() {
	pairs := [][2]byte{
		{'A', 'T'}, {'C', 'G'}, {'G', 'C'}, {'T', 'A'}, {'U', 'A'},
		{'R', 'Y'}, {'Y', 'R'},
		{'S', 'S'}, {'W', 'W'},
		{'K', 'M'}, {'M', 'K'},
		{'B', 'V'}, {'V', 'B'},
		{'D', 'H'}, {'H', 'D'},
		{'N', 'N'},
	}
	for _, p := range pairs {
		complement[p[0]] = p[1]
		complement[p[0]+('a'-'A')] = p[1] + ('a' - 'A')
	}
}

// Complement returns the IUPAC complement of b; unknown symbols become 'N'.
func Complement(b byte) byte {
	if c := complement[b]; c != 0 {
		return c
	}
	return 'N'
}

// RevComp returns the reverse complement of seq in a new slice.
func RevComp(seq []byte) []byte {
	n := len(seq)
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = Complement(seq[n-1-i])
	}
	return out
}
