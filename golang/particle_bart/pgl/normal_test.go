package pgl

import (
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

//The cache is a performance detail only: the test checks distributional, not bit
//exact, equivalence with drawing one standard normal value per call.
func TestNormalSamplerMoments(t *testing.T) {
	ns := NewNormalSampler(rand.NewSource(7))

	draws := make([]float64, 20000)
	for i := range draws {
		draws[i] = ns.Draw()
	}

	mean := stat.Mean(draws, nil)
	if mean < -0.05 || mean > 0.05 {
		t.Fatalf("mean too far from zero: %v", mean)
	}
	sd := stat.StdDev(draws, nil)
	if sd < 0.95 || sd > 1.05 {
		t.Fatalf("standard deviation too far from one: %v", sd)
	}
}

func TestNormalSamplerRefillsAcrossBatches(t *testing.T) {
	ns := NewNormalSampler(rand.NewSource(11))
	seen := make(map[float64]bool)
	for i := 0; i < 3*normalCacheSize; i++ {
		seen[ns.Draw()] = true
	}
	if len(seen) < 3*normalCacheSize-10 {
		t.Fatalf("draws repeat suspiciously often: %d distinct values", len(seen))
	}
}
