package pgl

import "testing"

func TestComputePriorLeafProbShape(t *testing.T) {
	for _, alpha := range []float64{0.1, 0.45, 0.95, 0.999} {
		probs := ComputePriorLeafProb(alpha)
		if probs[0] != 0 {
			t.Fatalf("alpha %v: the root entry should be 0, got %v", alpha, probs[0])
		}
		for i := 1; i < len(probs); i++ {
			if probs[i] < probs[i-1] {
				t.Fatalf("alpha %v: the table decreases at depth %d: %v < %v", alpha, i, probs[i], probs[i-1])
			}
		}
		last := probs[len(probs)-1]
		if last < 1 {
			t.Fatalf("alpha %v: the table does not saturate, last entry %v", alpha, last)
		}
		if len(probs) > maxPriorDepth+2 {
			t.Fatalf("alpha %v: the table is unexpectedly long: %d entries", alpha, len(probs))
		}
	}
}

func TestComputePriorLeafProbValues(t *testing.T) {
	probs := ComputePriorLeafProb(0.5)
	want := []float64{0, 0.5, 0.75, 0.875}
	for i, w := range want {
		if probs[i] != w {
			t.Fatalf("entry %d: got %v, want %v", i, probs[i], w)
		}
	}
}
