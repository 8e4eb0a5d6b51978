package pgl

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

//LogLikFunc scores a full sum of trees prediction vector, one entry per training
//row. The function is supplied by the model side and must be cheap to call
//repeatedly; it is the dominant cost of a sweep. When growth rounds run in parallel
//the function must also be reentrant.
type LogLikFunc func(prediction []float64) (float64, error)

//Default sampler settings.
const (
	DefaultNumParticles = 10
	DefaultMaxStages    = 100
	DefaultResampleEps  = 1e-12
)

//SamplerParams collects the arguments required to construct a PGBart sampler.
type SamplerParams struct {
	Data         DMatrix
	LogLik       LogLikFunc
	NumTrees     int
	NumParticles int     // at least two; zero selects DefaultNumParticles
	MaxStages    int     // zero is honored: a sweep then commits without growth rounds
	BatchTune    int     // trees refit per step while tuning; zero derives 10% of NumTrees
	BatchDraw    int     // trees refit per step after tuning; zero derives 20% of NumTrees
	Alpha        float64 // branching decay of the depth prior, in (0, 1)
	K            float64 // leaf noise scale parameter
	Response     ResponseKind
	SplitPrior   []float64 // optional per predictor weights; defaults to uniform
	ResampleEps  float64   // additive stabilization of resampling probabilities; zero selects DefaultResampleEps
	ThreadsNum   int       // particle parallelism within a round; needs a reentrant LogLik above one
	Seed         uint64
}

//StepStats reports per step diagnostics: how often each predictor was used by the
//trees accepted during the step and a snapshot of the current per tree state.
type StepStats struct {
	VariableInclusion []int
	Trees             []*Tree
}

//PGBart resamples the trees of a BART ensemble one at a time with a conditional
//sequential Monte Carlo sweep, in the manner of the Lakshminarayanan, Roy and Teh
//(2015) Particle Gibbs sampler. Trees within one step are updated strictly
//sequentially: each sweep scores its candidates against the sum of outputs the
//previous sweep just committed.
type PGBart struct {
	data   DMatrix
	logLik LogLikFunc

	m            int
	numParticles int
	maxStages    int
	batchTune    int
	batchDraw    int
	muStd        float64
	response     ResponseKind
	resampleEps  float64
	threadsNum   int

	alphaVec      []float64
	ssv           *SampleSplittingVariable
	priorLeafProb []float64

	numVariates     int
	initMean        float64
	initLikelihood  float64
	initLogWeight   float64
	logNumParticles float64

	sumTrees     []float64
	noi          []float64
	aTree        *Tree
	allParticles []*ParticleTree
	preds        *predictionWorkspace

	tune   bool
	rng    *rand.Rand
	normal *NormalSampler
}

//NewPGBart validates the configuration and prepares the initial ensemble: every
//tree starts as a single leaf at the response mean split across trees, and the
//initial sum of outputs is the flat mean prediction.
func NewPGBart(params SamplerParams) (*PGBart, error) {
	if err := params.Data.validate(); err != nil {
		return nil, err
	}
	if params.LogLik == nil {
		return nil, errors.New("missing likelihood function")
	}
	if params.NumTrees <= 0 {
		return nil, errors.New("the number of trees must be positive")
	}
	numParticles := params.NumParticles
	if numParticles == 0 {
		numParticles = DefaultNumParticles
	}
	if numParticles < 2 {
		return nil, errors.New("at least two particles are required")
	}
	if params.MaxStages < 0 {
		return nil, errors.New("negative number of stages")
	}
	if params.Alpha <= 0 || params.Alpha >= 1 {
		return nil, errors.New("alpha must lie in (0, 1)")
	}
	if params.K <= 0 {
		return nil, errors.New("k must be positive")
	}

	numObservations, numVariates := params.Data.X.Dims()
	//The flag is derived state: recompute it so a hand built DMatrix that bypassed
	//NewDMatrix still gets NaN values filtered out of the split candidates.
	params.Data.MissingData = detectMissing(params.Data.X)
	if params.Data.RecordIds == nil {
		params.Data.RecordIds = make([]int, numObservations)
		for i := range params.Data.RecordIds {
			params.Data.RecordIds[i] = i
		}
	}

	alphaVec := params.SplitPrior
	if alphaVec == nil {
		alphaVec = make([]float64, numVariates)
		for i := range alphaVec {
			alphaVec[i] = 1
		}
	} else {
		if len(alphaVec) != numVariates {
			return nil, errors.New("split prior length does not match the number of predictors")
		}
		alphaVec = append([]float64(nil), alphaVec...)
	}
	ssv, err := NewSampleSplittingVariable(alphaVec)
	if err != nil {
		return nil, err
	}

	resampleEps := params.ResampleEps
	if resampleEps == 0 {
		resampleEps = DefaultResampleEps
	}

	batchTune := params.BatchTune
	if batchTune == 0 {
		batchTune = maxInt(1, int(0.1*float64(params.NumTrees)))
	}
	batchDraw := params.BatchDraw
	if batchDraw == 0 {
		batchDraw = maxInt(1, int(0.2*float64(params.NumTrees)))
	}

	s := &PGBart{
		data:            params.Data,
		logLik:          params.LogLik,
		m:               params.NumTrees,
		numParticles:    numParticles,
		maxStages:       params.MaxStages,
		batchTune:       batchTune,
		batchDraw:       batchDraw,
		muStd:           LeafNoiseScale(params.Data.Y, params.K, params.NumTrees),
		response:        params.Response,
		resampleEps:     resampleEps,
		threadsNum:      maxInt(1, params.ThreadsNum),
		alphaVec:        alphaVec,
		ssv:             ssv,
		priorLeafProb:   ComputePriorLeafProb(params.Alpha),
		numVariates:     numVariates,
		logNumParticles: math.Log(float64(numParticles)),
		tune:            true,
		rng:             rand.New(rand.NewSource(params.Seed)),
	}
	s.normal = NewNormalSampler(rand.NewSource(s.rng.Uint64()))

	s.initMean = stat.Mean(params.Data.ResponseValues(), nil)
	s.sumTrees = make([]float64, numObservations)
	for i := range s.sumTrees {
		s.sumTrees[i] = s.initMean
	}

	s.initLikelihood, err = s.score(s.sumTrees)
	if err != nil {
		return nil, fmt.Errorf("initial likelihood: %w", err)
	}
	s.initLogWeight = s.initLikelihood - s.logNumParticles

	s.aTree = NewTree(s.m, s.initMean/float64(s.m), params.Data.RecordIds)
	s.allParticles = make([]*ParticleTree, s.m)
	for i := 0; i < s.m; i++ {
		leafValue := s.initMean/float64(s.m) + s.normal.Draw()*s.muStd
		tree := NewTree(s.m, leafValue, params.Data.RecordIds)
		s.allParticles[i] = NewParticleTree(tree, s.initLogWeight, s.initLikelihood, s.rng.Uint64())
	}

	s.preds = newPredictionWorkspace(numParticles, numObservations)
	return s, nil
}

//SetTuning switches between the tuning phase, in which accepted splits feed the
//split prior weights, and the posterior phase, in which they only feed the variable
//inclusion diagnostics. The tree batch size differs between the two phases as well.
func (s *PGBart) SetTuning(tune bool) {
	s.tune = tune
}

//Step resamples one batch of trees and returns the updated total prediction vector
//together with the step diagnostics. An oracle failure aborts the step.
func (s *PGBart) Step() ([]float64, StepStats, error) {
	variableInclusion := make([]int, s.numVariates)

	batch := s.batchDraw
	if s.tune {
		batch = s.batchTune
	}
	for b := 0; b < batch; b++ {
		treeID := s.rng.Intn(s.m)
		if err := s.sweep(treeID, variableInclusion); err != nil {
			return nil, StepStats{}, fmt.Errorf("sweep of tree %d: %w", treeID, err)
		}
	}

	prediction := append([]float64(nil), s.sumTrees...)
	trees := make([]*Tree, s.m)
	for i, p := range s.allParticles {
		trees[i] = p.Tree
	}
	return prediction, StepStats{VariableInclusion: variableInclusion, Trees: trees}, nil
}

//sweep runs the conditional SMC update for one tree: particle initialization, the
//growth, weighting and resampling rounds, the final selection by absolute fit and
//the commit of the winner into the global state.
func (s *PGBart) sweep(treeID int, variableInclusion []int) error {
	particles := s.initParticles(treeID)

	//Every candidate is scored as if it alone replaced the tree being resampled.
	refPrediction := particles[0].Tree.PredictOutput(s.data.X)
	s.noi = make([]float64, len(s.sumTrees))
	floats.SubTo(s.noi, s.sumTrees, refPrediction)

	env := &growEnv{
		ssv:           s.ssv,
		priorLeafProb: s.priorLeafProb,
		data:          &s.data,
		sumTrees:      s.sumTrees,
		m:             s.m,
		muStd:         s.muStd,
		response:      s.response,
	}

	//The reference particle never grows, so its weight is set once, to its raw log
	//likelihood. This asymmetry is the ancestor preservation of Particle Gibbs and
	//must not be folded into the round loop.
	if err := s.updateWeight(particles[0], 0, true); err != nil {
		return err
	}

	for stage := 0; stage < s.maxStages; stage++ {
		if err := s.growRound(particles, env); err != nil {
			return err
		}

		wt, probs := normalizeWeights(logWeights(particles[1:]), s.logNumParticles, s.resampleEps)
		s.resample(particles, probs, wt)

		if allDone(particles[1:]) {
			break
		}
	}

	//The final choice is by absolute fit, not by the relative SMC bookkeeping, so
	//the aggregate weights are replaced by the raw log likelihoods first.
	for _, p := range particles[1:] {
		p.LogWeight = p.OldLikelihood
	}
	_, probs := normalizeWeights(logWeights(particles), s.logNumParticles, s.resampleEps)
	winnerIndex := s.drawIndex(probs)
	winner := particles[winnerIndex]

	winner.LogWeight = winner.OldLikelihood - s.logNumParticles
	s.allParticles[treeID] = winner
	floats.AddTo(s.sumTrees, s.noi, s.preds.row(winnerIndex))

	if s.tune {
		ssv, err := NewSampleSplittingVariable(s.alphaVec)
		if err != nil {
			return err
		}
		s.ssv = ssv
		for _, idx := range winner.UsedVariates {
			s.alphaVec[idx]++
		}
	} else {
		for _, idx := range winner.UsedVariates {
			variableInclusion[idx]++
		}
	}
	return nil
}

//initParticles resurrects the previously accepted particle as the reference in slot
//zero, with its weight and likelihood reset to the initialization values, and fills
//the remaining slots with fresh single leaf particles.
func (s *PGBart) initParticles(treeID int) []*ParticleTree {
	root := s.allParticles[treeID]
	root.LogWeight = s.initLogWeight
	root.OldLikelihood = s.initLikelihood

	particles := make([]*ParticleTree, s.numParticles)
	particles[0] = root
	for i := 1; i < s.numParticles; i++ {
		particles[i] = NewParticleTree(s.aTree, s.initLogWeight, s.initLikelihood, s.rng.Uint64())
	}

	//Seed the workspace rows of the fresh particles up front: a particle that never
	//grows keeps this row, and the commit reads the winner's row unconditionally.
	fresh := s.aTree.PredictOutput(s.data.X)
	for i := 1; i < s.numParticles; i++ {
		s.preds.setRow(i, fresh)
	}
	return particles
}

//growRound attempts one growth step for every particle except the reference and
//refreshes the weight of each particle that grew. With more than one thread the
//particles are processed by a worker pool; the per particle random streams keep the
//result independent of the scheduling.
func (s *PGBart) growRound(particles []*ParticleTree, env *growEnv) error {
	growOne := func(slot int) error {
		if particles[slot].SampleTreeSequential(env) {
			return s.updateWeight(particles[slot], slot, false)
		}
		return nil
	}

	if s.threadsNum <= 1 {
		for slot := 1; slot < len(particles); slot++ {
			if err := growOne(slot); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(particles))
	pool := NewPool(s.threadsNum)
	for slot := 1; slot < len(particles); slot++ {
		pool.AddTask(&TaskGrowParticle{errs: errs, slot: slot, grow: growOne})
	}
	pool.Close()
	pool.WaitAll()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

//updateWeight rescores a particle at the baseline plus its own prediction and stores
//the prediction in the particle's workspace row. Since the depth prior doubles as
//the proposal, the importance weight updates additively by the log likelihood ratio
//of the grown tree against its previous state.
func (s *PGBart) updateWeight(p *ParticleTree, slot int, isNew bool) error {
	prediction := p.Tree.PredictOutput(s.data.X)
	s.preds.setRow(slot, prediction)

	scored := make([]float64, len(prediction))
	floats.AddTo(scored, s.noi, prediction)
	likelihood, err := s.score(scored)
	if err != nil {
		return err
	}

	if isNew {
		p.LogWeight = likelihood
	} else {
		p.LogWeight += likelihood - p.OldLikelihood
	}
	p.OldLikelihood = likelihood
	return nil
}

//score calls the likelihood oracle, treating failures and non finite values as
//fatal: silently continuing would corrupt the posterior.
func (s *PGBart) score(prediction []float64) (float64, error) {
	likelihood, err := s.logLik(prediction)
	if err != nil {
		return 0, fmt.Errorf("likelihood oracle: %w", err)
	}
	if !isFinite(likelihood) {
		return 0, fmt.Errorf("likelihood oracle returned a non finite value %v", likelihood)
	}
	return likelihood, nil
}

//resample redraws particles 1..P-1 with replacement according to the normalized
//probabilities, resetting their weights to the shared aggregate weight. The new
//population is built from independent clones so later in place growth cannot alias
//between slots that drew the same source particle.
func (s *PGBart) resample(particles []*ParticleTree, probs []float64, wt float64) {
	count := len(particles) - 1
	cat := distuv.NewCategorical(probs, rand.NewSource(s.rng.Uint64()))

	sources := make([]*ParticleTree, count)
	rows := make([][]float64, count)
	for j := 0; j < count; j++ {
		idx := int(cat.Rand())
		sources[j] = particles[1+idx]
		rows[j] = s.preds.row(1 + idx)
	}
	for j := 0; j < count; j++ {
		clone := sources[j].Copy(s.rng.Uint64())
		clone.LogWeight = wt
		particles[1+j] = clone
		s.preds.setRow(1+j, rows[j])
	}
}

//drawIndex draws one index proportionally to the given probabilities.
func (s *PGBart) drawIndex(probs []float64) int {
	return drawCategorical(probs, rand.NewSource(s.rng.Uint64()))
}

//drawCategorical draws one index with probability proportional to the given
//nonnegative weights.
func drawCategorical(probs []float64, src rand.Source) int {
	cat := distuv.NewCategorical(probs, src)
	return int(cat.Rand())
}

//normalizeWeights turns raw log weights into resampling probabilities with the
//log-sum-exp trick and returns the aggregate log weight W_t alongside. Every
//probability is nudged by eps so no particle gets an exactly zero resampling
//probability; the nudge introduces a small bias, which is why it stays configurable.
func normalizeWeights(logW []float64, logNumParticles, eps float64) (float64, []float64) {
	maxLogW := floats.Max(logW)
	probs := make([]float64, len(logW))
	sum := 0.0
	for i, lw := range logW {
		probs[i] = math.Exp(lw - maxLogW)
		sum += probs[i]
	}
	wt := maxLogW + math.Log(sum) - logNumParticles
	for i := range probs {
		probs[i] = probs[i]/sum + eps
	}
	return wt, probs
}

func logWeights(particles []*ParticleTree) []float64 {
	out := make([]float64, len(particles))
	for i, p := range particles {
		out[i] = p.LogWeight
	}
	return out
}

func allDone(particles []*ParticleTree) bool {
	for _, p := range particles {
		if !p.Done() {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
