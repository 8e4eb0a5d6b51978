package pgl

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestDrawLeafValueEmpty(t *testing.T) {
	// nil streams prove the branch consumes no randomness
	value, params := drawLeafValue(nil, nil, 5, 1.0, ResponseConstant, nil, nil)
	if value != 0 || params != nil {
		t.Fatalf("expected a silent zero leaf, got %v %v", value, params)
	}
}

func TestDrawLeafValueSingleResidual(t *testing.T) {
	value, params := drawLeafValue([]float64{3}, []float64{1}, 2, 1.0, ResponseConstant, nil, nil)
	if value != 1.5 {
		t.Fatalf("expected the degenerate single point fit 1.5, got %v", value)
	}
	if params != nil {
		t.Fatalf("expected no linear params, got %v", params)
	}
}

func TestDrawLeafValueConstant(t *testing.T) {
	ns := NewNormalSampler(rand.NewSource(3))
	value, params := drawLeafValue([]float64{1, 2, 3}, []float64{1, 2, 3}, 1, 0, ResponseConstant, ns, nil)
	if value != 2 {
		t.Fatalf("with zero noise scale the leaf should sit at the mean, got %v", value)
	}
	if params != nil {
		t.Fatalf("constant leaves carry no params, got %v", params)
	}
}

func TestDrawLeafValueLinear(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{1, 3, 5}
	ns := NewNormalSampler(rand.NewSource(3))
	_, params := drawLeafValue(y, x, 1, 0, ResponseLinear, ns, nil)
	if params == nil {
		t.Fatal("expected linear params")
	}
	if math.Abs(params.Intercept-1) > 1e-12 || math.Abs(params.Slope-2) > 1e-12 {
		t.Fatalf("bad fit: intercept %v slope %v", params.Intercept, params.Slope)
	}
	if params.Noise != 0 {
		t.Fatalf("with zero noise scale the shared noise should be zero, got %v", params.Noise)
	}
}

func TestLinearFitVarianceFallback(t *testing.T) {
	a, b := linearFit([]float64{2, 2, 2}, []float64{1, 5, 9})
	if b != 0 {
		t.Fatalf("a constant predictor must fall back to slope zero, got %v", b)
	}
	if a != 5 {
		t.Fatalf("the fallback intercept should be the response mean, got %v", a)
	}
}

func TestLeafNoiseScale(t *testing.T) {
	binary := mat.NewDense(4, 1, []float64{0, 1, 0, 1})
	if got := LeafNoiseScale(binary, 2, 4); got != 1.5 {
		t.Fatalf("binary scale: got %v, want 1.5", got)
	}

	// all zero responses are not treated as binary
	flat := mat.NewDense(3, 1, []float64{0, 0, 0})
	if got := LeafNoiseScale(flat, 2, 4); got != 0 {
		t.Fatalf("flat scale: got %v, want 0", got)
	}
}

func TestParseResponse(t *testing.T) {
	for name, want := range map[string]ResponseKind{
		"constant": ResponseConstant,
		"linear":   ResponseLinear,
		"mix":      ResponseMix,
	} {
		got, err := ParseResponse(name)
		if err != nil || got != want {
			t.Fatalf("ParseResponse(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseResponse("spline"); err == nil {
		t.Fatal("expected an error for an unknown response kind")
	}
}
