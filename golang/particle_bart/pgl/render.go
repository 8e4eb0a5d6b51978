package pgl

import (
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

//GraphDescription returns the description of a tree node for rendering as a graph
func (node *TreeNode) GraphDescription() string {
	var sb strings.Builder
	if node.IsLeaf() {
		sb.WriteString(fmt.Sprintln("id: ", node.Index))
		if node.Params != nil {
			sb.WriteString(fmt.Sprintf("%6.3f + %6.3f x_%d\n", node.Params.Intercept, node.Params.Slope, node.Params.Predictor))
		} else {
			sb.WriteString(fmt.Sprintf("value: %6.3f\n", node.Value))
		}
		sb.WriteString(fmt.Sprintln("# ", len(node.Rows)))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintln("id: ", node.Index))
	sb.WriteString(fmt.Sprintf("x_%d <= %6.5f", node.SplitVariable, node.Threshold))
	return sb.String()
}

func recurrentDraw(g *cgraph.Graph, tree *Tree, nodeIndex int, parentNode *cgraph.Node) {
	node := tree.GetNode(nodeIndex)
	currentNode, err := g.CreateNode(fmt.Sprint(nodeIndex))
	HandleError(err)

	if parentNode != nil {
		_, err = g.CreateEdge("", parentNode, currentNode)
		HandleError(err)
	}

	currentNode.Set("label", node.GraphDescription())
	if node.IsLeaf() {
		currentNode.Set("shape", "box")
	} else {
		recurrentDraw(g, tree, node.LeftChild(), currentNode)
		recurrentDraw(g, tree, node.RightChild(), currentNode)
	}
}

//DrawGraph renders the tree into a graphviz graph.
func (tree *Tree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	HandleError(err)

	recurrentDraw(graph, tree, 0, nil)

	return graphViz, graph
}

//RenderTrees dumps one picture per tree of the forest.
func (forest Forest) RenderTrees(dumpPrefix, figureType, picturesDirectory string) {
	graphvizType := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]

	for graphInd, currentTree := range forest.Trees {
		filename := fmt.Sprintf("%s_%05d.%s", dumpPrefix, graphInd, figureType)
		graphViz, graph := currentTree.DrawGraph()
		HandleError(graphViz.RenderFilename(graph, graphvizType, path.Join(picturesDirectory, filename)))
	}
}
