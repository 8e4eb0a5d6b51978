package pgl

import "golang.org/x/exp/rand"

//normalSeedMix decorrelates the normal cache stream from the uniform stream of the
//same particle.
const normalSeedMix = 0x9e3779b97f4a7c15

//ParticleTree is one candidate tree in the conditional SMC sweep together with its
//bookkeeping: the FIFO queue of leaves still eligible for expansion, the running
//importance log weight, the last evaluated log likelihood and the predictors used by
//the growths applied so far. A particle owns its tree copy and its random streams,
//so particles can be grown independently within a round.
type ParticleTree struct {
	Tree           *Tree
	ExpansionNodes []int
	LogWeight      float64
	OldLikelihood  float64
	UsedVariates   []int

	rng    *rand.Rand
	normal *NormalSampler
}

//NewParticleTree clones the given tree into a fresh particle whose expansion queue
//is seeded with the root.
func NewParticleTree(tree *Tree, logWeight, likelihood float64, seed uint64) *ParticleTree {
	return &ParticleTree{
		Tree:           tree.Copy(),
		ExpansionNodes: []int{0},
		LogWeight:      logWeight,
		OldLikelihood:  likelihood,
		rng:            rand.New(rand.NewSource(seed)),
		normal:         NewNormalSampler(rand.NewSource(seed ^ normalSeedMix)),
	}
}

//Copy produces an independent clone for the resampling fan out. The clone receives
//fresh random streams so its subsequent growth does not mirror its sibling copies.
func (p *ParticleTree) Copy(seed uint64) *ParticleTree {
	return &ParticleTree{
		Tree:           p.Tree.Copy(),
		ExpansionNodes: append([]int(nil), p.ExpansionNodes...),
		LogWeight:      p.LogWeight,
		OldLikelihood:  p.OldLikelihood,
		UsedVariates:   append([]int(nil), p.UsedVariates...),
		rng:            rand.New(rand.NewSource(seed)),
		normal:         NewNormalSampler(rand.NewSource(seed ^ normalSeedMix)),
	}
}

//Done reports whether the particle has exhausted all expandable leaves; such a
//particle stays unchanged for the remainder of the sweep.
func (p *ParticleTree) Done() bool {
	return len(p.ExpansionNodes) == 0
}

//SampleTreeSequential pops the next expandable leaf and attempts one growth step at
//it. On success the two new leaves join the back of the queue and the used predictor
//is recorded. With an empty queue the call is a no-op reporting no growth.
func (p *ParticleTree) SampleTreeSequential(env *growEnv) bool {
	if len(p.ExpansionNodes) == 0 {
		return false
	}
	leafIndex := p.ExpansionNodes[0]
	p.ExpansionNodes = p.ExpansionNodes[1:]

	grew, predictor := growTree(p.Tree, leafIndex, env, p.normal, p.rng)
	if grew {
		node := p.Tree.GetNode(leafIndex)
		p.ExpansionNodes = append(p.ExpansionNodes, node.LeftChild(), node.RightChild())
		p.UsedVariates = append(p.UsedVariates, predictor)
	}
	return grew
}
