package pgl

import (
	"math"

	"golang.org/x/exp/rand"
)

//growEnv collects the sweep wide inputs every growth step needs. The sampler builds
//one per sweep; all fields are read only during the growth rounds.
type growEnv struct {
	ssv           *SampleSplittingVariable
	priorLeafProb []float64
	data          *DMatrix
	sumTrees      []float64
	m             int
	muStd         float64
	response      ResponseKind
}

//growTree attempts to replace the leaf at leafIndex with a split node and two fresh
//leaves. It reports whether the tree grew and which predictor the split used.
//Growth fails, without error, when the depth prior retains the leaf or when the
//sampled predictor has no valid splitting value for the routed rows.
func growTree(tree *Tree, leafIndex int, env *growEnv, normal *NormalSampler, rng *rand.Rand) (bool, int) {
	node := tree.GetNode(leafIndex)

	probLeaf := 1.0
	if depth := node.Depth(); depth < len(env.priorLeafProb) {
		probLeaf = env.priorLeafProb[depth]
	}
	if probLeaf >= rng.Float64() {
		return false, -1
	}

	predictor := env.ssv.Sample(rng)
	rows := node.Rows

	//Missing entries are dropped from the candidate split values only; the routing
	//below still covers every row of the node.
	candidates := make([]float64, 0, len(rows))
	for _, row := range rows {
		val := env.data.X.At(row, predictor)
		if env.data.MissingData && math.IsNaN(val) {
			continue
		}
		candidates = append(candidates, val)
	}
	if len(candidates) == 0 {
		return false, -1
	}
	threshold := candidates[rng.Intn(len(candidates))]

	leftRows := make([]int, 0, len(rows))
	rightRows := make([]int, 0, len(rows))
	for _, row := range rows {
		if env.data.X.At(row, predictor) <= threshold {
			leftRows = append(leftRows, row)
		} else {
			rightRows = append(rightRows, row)
		}
	}

	response := resolveResponse(env.response, rng)

	leftValue, leftParams := drawLeafValue(
		gather(env.sumTrees, leftRows),
		gatherColumn(env.data.X, leftRows, predictor),
		env.m, env.muStd, response, normal, rng,
	)
	rightValue, rightParams := drawLeafValue(
		gather(env.sumTrees, rightRows),
		gatherColumn(env.data.X, rightRows, predictor),
		env.m, env.muStd, response, normal, rng,
	)
	if leftParams != nil {
		leftParams.Predictor = predictor
	}
	if rightParams != nil {
		rightParams.Predictor = predictor
	}

	left := NewLeafNode(node.LeftChild(), leftValue, leftRows, leftParams)
	right := NewLeafNode(node.RightChild(), rightValue, rightRows, rightParams)
	tree.Grow(leafIndex, predictor, threshold, left, right)

	return true, predictor
}
