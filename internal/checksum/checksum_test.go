package checksum

import "testing"

func TestDNA_KnownVector(t *testing.T) {
	// sha1("abc")
	if got := DNA("abc"); got != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("DNA(abc) = %s", got)
	}
}

func TestDNA_Distinct(t *testing.T) {
	if DNA("0:a.png-1:b.png") == DNA("0:a.png-1:c.png") {
		t.Error("different dna should hash differently")
	}
}
