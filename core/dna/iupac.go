// Package dna holds the nucleotide alphabet shared by every scorer:
// IUPAC masks, base indices and the reverse complement.
package dna

/* -------------------------- IUPAC lookup table -------------------------- */

var iupacMask [256]uint8 // bit0=A bit1=C bit2=G bit3=T

func init() {
	set := func(c byte, bits uint8) {
		iupacMask[c] = bits
		if c >= 'A' && c <= 'Z' {
			iupacMask[c+('a'-'A')] = bits
		}
	}
	set('A', 1)       // 0001
	set('C', 2)       // 0010
	set('G', 4)       // 0100
	set('T', 8)       // 1000
	set('U', 8)       // RNA
	set('R', 1|4)     // A/G
	set('Y', 2|8)     // C/T
	set('S', 2|4)     // C/G
	set('W', 1|8)     // A/T
	set('K', 4|8)     // G/T
	set('M', 1|2)     // A/C
	set('B', 2|4|8)   // C/G/T
	set('D', 1|4|8)   // A/G/T
	set('H', 1|2|8)   // A/C/T
	set('V', 1|2|4)   // A/C/G
	set('N', 1|2|4|8) // any
}

// Mask returns the 4-bit IUPAC mask of b, 0 for symbols outside the alphabet.
func Mask(b byte) uint8 { return iupacMask[b] }

// Index maps an unambiguous base to 0..3 (A,C,G,T). Anything else is -1.
func Index(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't', 'U', 'u':
		return 3
	default:
		return -1
	}
}

// IsUnambiguous reports whether every symbol of w is one of A/C/G/T.
func IsUnambiguous(w []byte) bool {
	for _, c := range w {
		if Index(c) < 0 {
			return false
		}
	}
	return true
}

// Matches reports whether sequence base g is compatible with pattern base p.
//
// A sequence base that is not A/C/G/T is a hard mismatch, so runs of N in a
// genome never produce matches against an N-rich pattern.
func Matches(g, p byte) bool {
	if Index(g) < 0 {
		return false
	}
	return iupacMask[p]&iupacMask[g] != 0
}
