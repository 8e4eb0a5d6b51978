package pgl

import "gorgonia.org/tensor"

//predictionWorkspace keeps the per particle prediction vectors of one sweep in a
//dense (particles x observations) tensor. A grown particle only rewrites its own
//row, the resampling fan out copies rows between slots and the commit phase reads
//the winner's row back without re-walking its tree.
type predictionWorkspace struct {
	buf *tensor.Dense
	n   int
}

func newPredictionWorkspace(particles, observations int) *predictionWorkspace {
	return &predictionWorkspace{
		buf: tensor.New(tensor.WithShape(particles, observations), tensor.Of(tensor.Float64)),
		n:   observations,
	}
}

//setRow stores the prediction vector of one particle slot.
func (w *predictionWorkspace) setRow(slot int, vals []float64) {
	for j, v := range vals {
		HandleError(w.buf.SetAt(v, slot, j))
	}
}

//row extracts the prediction vector of one particle slot.
func (w *predictionWorkspace) row(slot int) []float64 {
	out := make([]float64, w.n)
	for j := 0; j < w.n; j++ {
		val, err := w.buf.At(slot, j)
		HandleError(err)
		out[j] = val.(float64)
	}
	return out
}
