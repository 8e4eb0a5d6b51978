package pgl

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

//normalCacheSize is the number of standard normal draws generated per refill.
const normalCacheSize = 1000

//NormalSampler buffers standard normal draws so the generator is exercised in
//batches. It exists purely as an amortization; behaviorally it is equivalent to
//drawing one standard normal value per call.
type NormalSampler struct {
	dist  distuv.Normal
	cache []float64
}

//NewNormalSampler creates a buffered standard normal sampler over the given source.
func NewNormalSampler(src rand.Source) *NormalSampler {
	return &NormalSampler{dist: distuv.Normal{Mu: 0, Sigma: 1, Src: src}}
}

//Draw pops one value from the cache, refilling the whole cache when it is empty.
func (ns *NormalSampler) Draw() float64 {
	if len(ns.cache) == 0 {
		ns.refill()
	}
	val := ns.cache[len(ns.cache)-1]
	ns.cache = ns.cache[:len(ns.cache)-1]
	return val
}

func (ns *NormalSampler) refill() {
	if ns.cache == nil {
		ns.cache = make([]float64, 0, normalCacheSize)
	}
	for i := 0; i < normalCacheSize; i++ {
		ns.cache = append(ns.cache, ns.dist.Rand())
	}
}
