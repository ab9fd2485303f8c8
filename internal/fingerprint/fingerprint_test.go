package fingerprint

import "testing"

func TestComputeStable(t *testing.T) {
	a := Compute([]byte("invoice bytes"))
	b := Compute([]byte("invoice bytes"))
	if a != b {
		t.Fatalf("same bytes produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("unexpected fingerprint length: %d", len(a))
	}
	if Compute([]byte("other bytes")) == a {
		t.Fatal("different bytes produced the same fingerprint")
	}
}
