package pgl

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//ResponseKind selects how a leaf value responds to the split predictor.
type ResponseKind int

const (
	//ResponseConstant draws one constant value for the whole leaf.
	ResponseConstant ResponseKind = iota
	//ResponseLinear fits the leaf linearly in the split predictor.
	ResponseLinear
	//ResponseMix flips a fair coin between constant and linear at every growth event.
	ResponseMix
)

//ParseResponse maps a configuration string onto a ResponseKind.
func ParseResponse(name string) (ResponseKind, error) {
	switch name {
	case "constant":
		return ResponseConstant, nil
	case "linear":
		return ResponseLinear, nil
	case "mix":
		return ResponseMix, nil
	}
	return ResponseConstant, fmt.Errorf("unknown response kind %q", name)
}

//linearFitVarianceFloor guards the least squares slope against a predictor column
//with numerically zero variance.
const linearFitVarianceFloor = 1e-10

//linearFit computes the ordinary least squares fit of y on x and returns the
//intercept and the slope. A predictor with variance below the numerical floor falls
//back to slope zero; the fallback is recovered locally and never reported upward.
func linearFit(x, y []float64) (a, b float64) {
	n := float64(len(y))
	xbar := stat.Mean(x, nil)
	ybar := stat.Mean(y, nil)
	den := floats.Dot(x, x) - n*xbar*xbar
	if den > linearFitVarianceFloor {
		b = (floats.Dot(x, y) - n*xbar*ybar) / den
	}
	a = ybar - b*xbar
	return a, b
}

//resolveResponse collapses the mixed mode into constant or linear with a fair coin.
//It is called once per growth event so both leaves of a split share the outcome.
func resolveResponse(response ResponseKind, rng *rand.Rand) ResponseKind {
	if response != ResponseMix {
		return response
	}
	if rng.Float64() >= 0.5 {
		return ResponseLinear
	}
	return ResponseConstant
}

//drawLeafValue draws a new value for the rows routed to a leaf. residuals holds the
//sum of tree outputs at those rows, xcol the values of the split predictor. An empty
//leaf yields zero and a single row yields the degenerate single point fit; neither
//consumes randomness. Otherwise the draw is the scaled fit plus leaf noise; linear
//leaves return their fit parameters with the noise attached, the predictor index is
//filled in by the caller.
func drawLeafValue(residuals, xcol []float64, m int, muStd float64, response ResponseKind, normal *NormalSampler, rng *rand.Rand) (float64, *LeafParams) {
	if len(residuals) == 0 {
		return 0, nil
	}
	if len(residuals) == 1 {
		return residuals[0] / float64(m), nil
	}
	response = resolveResponse(response, rng)
	norm := normal.Draw() * muStd
	if response == ResponseLinear {
		a, b := linearFit(xcol, residuals)
		return 0, &LeafParams{Predictor: -1, Intercept: a, Slope: b, Noise: norm}
	}
	return stat.Mean(residuals, nil)/float64(m) + norm, nil
}

//LeafNoiseScale computes the standard deviation scale used for leaf noise. It is
//derived once from the full training response: a binary zero/one response gets the
//fixed 6/(k*sqrt(m)) scale, a continuous response scales with its spread.
func LeafNoiseScale(y *mat.Dense, k float64, m int) float64 {
	vals := make([]float64, Height(y))
	binary := true
	sawZero, sawOne := false, false
	for i := range vals {
		vals[i] = y.At(i, 0)
		switch vals[i] {
		case 0:
			sawZero = true
		case 1:
			sawOne = true
		default:
			binary = false
		}
	}
	if binary && sawZero && sawOne {
		return 6 / (k * math.Sqrt(float64(m)))
	}
	spread := 0.0
	if len(vals) > 1 {
		spread = stat.StdDev(vals, nil)
	}
	return 2 * spread / (k * math.Sqrt(float64(m)))
}
