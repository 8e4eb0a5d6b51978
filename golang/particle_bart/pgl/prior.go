package pgl

import "math"

//maxPriorDepth caps the table depth so rounding in the decay power can never keep
//the construction loop alive forever.
const maxPriorDepth = 200

//ComputePriorLeafProb returns, for every tree depth, the prior probability that a
//node at that depth remains a leaf: 1 - alpha^depth. Entry zero is forced to 0 so
//the root always splits on its first visit. The table grows until the probability
//saturates to one in floating point.
func ComputePriorLeafProb(alpha float64) []float64 {
	probs := []float64{0}
	for depth := 1; probs[len(probs)-1] < 1; depth++ {
		if depth > maxPriorDepth {
			probs = append(probs, 1)
			break
		}
		probs = append(probs, 1-math.Pow(alpha, float64(depth)))
	}
	return probs
}
