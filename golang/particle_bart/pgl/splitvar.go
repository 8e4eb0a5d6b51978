package pgl

import (
	"errors"

	"golang.org/x/exp/rand"
)

//SampleSplittingVariable draws split predictors with probability proportional to a
//weight vector. Sampling from the normalized weights matches the posterior mean of a
//Dirichlet-multinomial model, which is what makes the split selection sparsity
//inducing once the weights are learned.
type SampleSplittingVariable struct {
	cdf []float64
}

//NewSampleSplittingVariable precomputes the cumulative distribution over predictors.
//The sampler must be rebuilt whenever the weight vector changes; rebuilding happens
//once per tuning commit, not per draw.
func NewSampleSplittingVariable(weights []float64) (*SampleSplittingVariable, error) {
	if len(weights) == 0 {
		return nil, errors.New("empty split weight vector")
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, errors.New("negative split weight")
		}
		total += w
	}
	if total <= 0 {
		return nil, errors.New("split weights sum to zero")
	}
	cdf := make([]float64, len(weights))
	acc := 0.0
	for i, w := range weights {
		acc += w / total
		cdf[i] = acc
	}
	cdf[len(cdf)-1] = 1
	return &SampleSplittingVariable{cdf: cdf}, nil
}

//Sample returns the smallest predictor index whose cumulative weight covers a
//uniform draw from the given stream.
func (ssv *SampleSplittingVariable) Sample(rng *rand.Rand) int {
	r := rng.Float64()
	for i, v := range ssv.cdf {
		if r <= v {
			return i
		}
	}
	return len(ssv.cdf) - 1
}

//NumPredictors returns the size of the predictor set the sampler draws from.
func (ssv *SampleSplittingVariable) NumPredictors() int {
	return len(ssv.cdf)
}
