package dna

import "testing"

func TestMask_Snapshot(t *testing.T) {
	if Mask('A') != 1 || Mask('C') != 2 || Mask('G') != 4 || Mask('T') != 8 {
		t.Fatalf("canonical masks corrupted")
	}
	if Mask('U') != Mask('T') || Mask('n') != Mask('N') || Mask('r') != Mask('R') {
		t.Fatalf("U and lowercase must mirror uppercase")
	}
	if Mask('X') != 0 {
		t.Fatalf("unknown symbol must have an empty mask")
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		g, p byte
		want bool
	}{
		{'A', 'A', true},
		{'G', 'R', true},
		{'C', 'R', false},
		{'T', 'N', true},
		{'A', 'B', false},
		{'c', 'B', true},
		{'N', 'N', false}, // ambiguous sequence base never matches
		{'T', 'X', false},
	}
	for _, tt := range tests {
		if got := Matches(tt.g, tt.p); got != tt.want {
			t.Errorf("Matches(%q,%q) = %v, want %v", tt.g, tt.p, got, tt.want)
		}
	}
}

func TestIsUnambiguous(t *testing.T) {
	if !IsUnambiguous([]byte("ACGTacgt")) {
		t.Fatal("ACGTacgt is unambiguous")
	}
	if IsUnambiguous([]byte("ACNT")) {
		t.Fatal("ACNT contains N")
	}
	if Index('u') != 3 || Index('-') != -1 {
		t.Fatal("Index mapping corrupted")
	}
}
