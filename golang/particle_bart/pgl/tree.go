package pgl

import (
	"math/bits"
	"sort"

	"gonum.org/v1/gonum/mat"
)

//LeafParams carries the linear response of a leaf: the predictor the leaf was fit
//against, the intercept and the slope of the least squares fit, and the noise draw
//shared by every row of the leaf. Slope and intercept are stored unscaled; the
//division by the number of trees happens at prediction time.
type LeafParams struct {
	Predictor int     `json:"predictor"`
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	Noise     float64 `json:"noise"`
}

//TreeNode is a node of a decision tree. Nodes are addressed by heap numbering: the
//root is 0 and the children of node i are 2*i+1 and 2*i+2. SplitVariable is -1 when
//the node is a leaf, otherwise it holds the predictor the node splits on, routing
//rows with values up to Threshold left. A leaf keeps the training rows routed to it
//and either a constant Value or linear Params.
type TreeNode struct {
	Index         int         `json:"index"`
	SplitVariable int         `json:"split_variable"`
	Threshold     float64     `json:"threshold"`
	Value         float64     `json:"value"`
	Params        *LeafParams `json:"params,omitempty"`
	Rows          []int       `json:"rows,omitempty"`
}

//NewLeafNode creates a new leaf node at the given heap index.
func NewLeafNode(index int, value float64, rows []int, params *LeafParams) *TreeNode {
	return &TreeNode{Index: index, SplitVariable: -1, Value: value, Params: params, Rows: rows}
}

//IsLeaf returns whether this node is a leaf.
func (node *TreeNode) IsLeaf() bool {
	return node.SplitVariable == -1
}

//Depth returns the depth implied by the heap index of the node.
func (node *TreeNode) Depth() int {
	return bits.Len(uint(node.Index)+1) - 1
}

//LeftChild returns the heap index of the left child.
func (node *TreeNode) LeftChild() int {
	return 2*node.Index + 1
}

//RightChild returns the heap index of the right child.
func (node *TreeNode) RightChild() int {
	return 2*node.Index + 2
}

func (node *TreeNode) copyNode() *TreeNode {
	clone := *node
	if node.Params != nil {
		params := *node.Params
		clone.Params = &params
	}
	if node.Rows != nil {
		clone.Rows = append([]int(nil), node.Rows...)
	}
	return &clone
}

//Tree is a rooted binary tree stored as an index addressed node arena. The leaf row
//sets partition the training rows: every row belongs to exactly one leaf. M is the
//size of the ensemble the tree belongs to; linear leaves need it to scale their fit
//at prediction time.
type Tree struct {
	M           int               `json:"m"`
	Nodes       map[int]*TreeNode `json:"nodes"`
	LeafIndices []int             `json:"leaf_indices"`
}

//NewTree creates a single leaf tree holding the given training rows at its root.
func NewTree(m int, value float64, rows []int) *Tree {
	root := NewLeafNode(0, value, append([]int(nil), rows...), nil)
	return &Tree{
		M:           m,
		Nodes:       map[int]*TreeNode{0: root},
		LeafIndices: []int{0},
	}
}

//GetNode fetches a node by its heap index.
func (tree *Tree) GetNode(index int) *TreeNode {
	return tree.Nodes[index]
}

//Grow replaces the leaf at leafIndex with a split node and attaches the two new
//leaves to the arena.
func (tree *Tree) Grow(leafIndex, splitVariable int, threshold float64, left, right *TreeNode) {
	node := tree.Nodes[leafIndex]
	node.SplitVariable = splitVariable
	node.Threshold = threshold
	node.Value = 0
	node.Params = nil
	node.Rows = nil

	tree.Nodes[left.Index] = left
	tree.Nodes[right.Index] = right

	for i, idx := range tree.LeafIndices {
		if idx == leafIndex {
			tree.LeafIndices = append(tree.LeafIndices[:i], tree.LeafIndices[i+1:]...)
			break
		}
	}
	tree.LeafIndices = append(tree.LeafIndices, left.Index, right.Index)
}

//Copy returns a deep copy with an independent node arena, so the clone can be
//mutated without aliasing into the receiver.
func (tree *Tree) Copy() *Tree {
	nodes := make(map[int]*TreeNode, len(tree.Nodes))
	for index, node := range tree.Nodes {
		nodes[index] = node.copyNode()
	}
	return &Tree{
		M:           tree.M,
		Nodes:       nodes,
		LeafIndices: append([]int(nil), tree.LeafIndices...),
	}
}

//leafValueAt returns the contribution of a leaf for one training row. Constant
//leaves contribute their value; linear leaves evaluate their scaled fit at the
//row's predictor value.
func (tree *Tree) leafValueAt(node *TreeNode, x *mat.Dense, row int) float64 {
	if node.Params == nil {
		return node.Value
	}
	m := float64(tree.M)
	xv := x.At(row, node.Params.Predictor)
	return node.Params.Intercept/m + node.Params.Slope/m*xv + node.Params.Noise
}

//PredictOutput computes, for every training row, the predicted value under this
//tree using the rows routed to each leaf.
func (tree *Tree) PredictOutput(x *mat.Dense) []float64 {
	out := make([]float64, Height(x))
	for _, leafIndex := range tree.LeafIndices {
		node := tree.Nodes[leafIndex]
		for _, row := range node.Rows {
			out[row] = tree.leafValueAt(node, x, row)
		}
	}
	return out
}

//PredictDescend routes every row of an arbitrary design matrix from the root down
//to a leaf by comparing predictor values against thresholds. Rows with missing or
//larger values go right, matching how rows were partitioned during growth.
func (tree *Tree) PredictDescend(x *mat.Dense) []float64 {
	h := Height(x)
	out := make([]float64, h)
	for row := 0; row < h; row++ {
		node := tree.Nodes[0]
		for !node.IsLeaf() {
			if x.At(row, node.SplitVariable) <= node.Threshold {
				node = tree.Nodes[node.LeftChild()]
			} else {
				node = tree.Nodes[node.RightChild()]
			}
		}
		out[row] = tree.leafValueAt(node, x, row)
	}
	return out
}

//SortedLeafIndices returns the leaf indices in heap order, mostly for reporting.
func (tree *Tree) SortedLeafIndices() []int {
	indices := append([]int(nil), tree.LeafIndices...)
	sort.Ints(indices)
	return indices
}
