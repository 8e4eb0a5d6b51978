package pgl

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

//checkPartition verifies that every training row belongs to exactly one leaf.
func checkPartition(t *testing.T, tree *Tree, numRows int) {
	t.Helper()
	seen := make([]int, numRows)
	for _, leafIndex := range tree.LeafIndices {
		node := tree.GetNode(leafIndex)
		if node == nil || !node.IsLeaf() {
			t.Fatalf("leaf index %d does not point at a leaf", leafIndex)
		}
		for _, row := range node.Rows {
			seen[row]++
		}
	}
	for row, count := range seen {
		if count != 1 {
			t.Fatalf("row %d belongs to %d leaves", row, count)
		}
	}
}

func TestTreeDepthFromHeapIndex(t *testing.T) {
	for index, want := range map[int]int{0: 0, 1: 1, 2: 1, 3: 2, 6: 2, 7: 3, 14: 3} {
		node := &TreeNode{Index: index}
		if got := node.Depth(); got != want {
			t.Fatalf("depth of node %d: got %d, want %d", index, got, want)
		}
	}
}

func TestTreeGrowKeepsPartition(t *testing.T) {
	tree := NewTree(1, 0.5, []int{0, 1, 2, 3})
	checkPartition(t, tree, 4)

	tree.Grow(0, 0, 2.0,
		NewLeafNode(1, 1.0, []int{0, 1}, nil),
		NewLeafNode(2, 3.0, []int{2, 3}, nil),
	)
	checkPartition(t, tree, 4)

	tree.Grow(2, 0, 3.0,
		NewLeafNode(5, 3.0, []int{2}, nil),
		NewLeafNode(6, 4.0, []int{3}, nil),
	)
	checkPartition(t, tree, 4)

	root := tree.GetNode(0)
	if root.IsLeaf() || root.SplitVariable != 0 || root.Threshold != 2.0 {
		t.Fatalf("unexpected root after growth: %+v", root)
	}
}

func TestTreePredictOutput(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	tree := NewTree(1, 0, []int{0, 1, 2, 3})
	tree.Grow(0, 0, 2.0,
		NewLeafNode(1, -1.0, []int{0, 1}, nil),
		NewLeafNode(2, 1.0, []int{2, 3}, nil),
	)

	want := []float64{-1, -1, 1, 1}
	for i, w := range want {
		if got := tree.PredictOutput(x)[i]; got != w {
			t.Fatalf("row %d: got %v, want %v", i, got, w)
		}
	}
}

func TestTreePredictDescendMatchesPredictOutput(t *testing.T) {
	x := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	tree := NewTree(1, 0, []int{0, 1, 2, 3, 4})
	tree.Grow(0, 0, 3.0,
		NewLeafNode(1, -2.0, []int{0, 1, 2}, nil),
		NewLeafNode(2, 2.0, []int{3, 4}, nil),
	)

	routed := tree.PredictOutput(x)
	descended := tree.PredictDescend(x)
	for i := range routed {
		if routed[i] != descended[i] {
			t.Fatalf("row %d: routing %v, descent %v", i, routed[i], descended[i])
		}
	}
}

func TestTreePredictDescendMissingGoesRight(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{math.NaN(), 1})
	tree := NewTree(1, 0, []int{0, 1})
	tree.Grow(0, 0, 1.5,
		NewLeafNode(1, -1.0, []int{1}, nil),
		NewLeafNode(2, 1.0, []int{0}, nil),
	)

	out := tree.PredictDescend(x)
	if out[0] != 1 {
		t.Fatalf("a missing value should route right, got %v", out[0])
	}
	if out[1] != -1 {
		t.Fatalf("row 1 should route left, got %v", out[1])
	}
}

func TestTreeLinearLeafPrediction(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{1, 3})
	tree := NewTree(2, 0, []int{0, 1})
	params := &LeafParams{Predictor: 0, Intercept: 2, Slope: 4, Noise: 0.5}
	tree.Grow(0, 0, 10,
		NewLeafNode(1, 0, []int{0, 1}, params),
		NewLeafNode(2, 0, nil, nil),
	)

	out := tree.PredictOutput(x)
	// a/m + b/m*x + noise with m = 2
	want0 := 2.0/2 + 4.0/2*1 + 0.5
	want1 := 2.0/2 + 4.0/2*3 + 0.5
	if math.Abs(out[0]-want0) > 1e-12 || math.Abs(out[1]-want1) > 1e-12 {
		t.Fatalf("linear leaf prediction: got %v, want [%v %v]", out, want0, want1)
	}
}

func TestTreeCopyIsIndependent(t *testing.T) {
	tree := NewTree(1, 0.5, []int{0, 1})
	clone := tree.Copy()

	clone.Grow(0, 0, 1.0,
		NewLeafNode(1, 1.0, []int{0}, nil),
		NewLeafNode(2, 2.0, []int{1}, nil),
	)

	if !tree.GetNode(0).IsLeaf() {
		t.Fatal("growing the clone mutated the original root")
	}
	if len(tree.Nodes) != 1 || len(clone.Nodes) != 3 {
		t.Fatalf("unexpected arena sizes: original %d, clone %d", len(tree.Nodes), len(clone.Nodes))
	}
}
