package pgl

import (
	"encoding/json"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//Forest is a snapshot of the accepted trees of a sampler, suitable for
//serialization and out of sample prediction.
type Forest struct {
	M     int     `json:"m"`
	Trees []*Tree `json:"trees"`
}

//Forest returns a deep copy of the current per tree state, so the snapshot stays
//valid while the sampler keeps stepping.
func (s *PGBart) Forest() Forest {
	trees := make([]*Tree, s.m)
	for i, p := range s.allParticles {
		trees[i] = p.Tree.Copy()
	}
	return Forest{M: s.m, Trees: trees}
}

//PredictValue routes every row of the design matrix through every tree and sums the
//leaf contributions.
func (forest Forest) PredictValue(x *mat.Dense) []float64 {
	prediction := make([]float64, Height(x))
	for _, tree := range forest.Trees {
		floats.Add(prediction, tree.PredictDescend(x))
	}
	return prediction
}

//Save writes the forest as indented JSON.
func (forest Forest) Save(filename string) error {
	dest, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { HandleError(dest.Close()) }()

	forestByteRepr, err := json.MarshalIndent(forest, "", "  ")
	if err != nil {
		return err
	}
	_, err = dest.Write(forestByteRepr)
	return err
}

//LoadForest reads a forest previously written by Save.
func LoadForest(filename string) (forest Forest, err error) {
	source, err := os.Open(filename)
	if err != nil {
		return Forest{}, err
	}
	defer func() { HandleError(source.Close()) }()

	decoder := json.NewDecoder(source)
	if err := decoder.Decode(&forest); err != nil {
		return Forest{}, err
	}
	return forest, nil
}
