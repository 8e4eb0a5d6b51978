package pgl

import (
	"errors"
	"log"
	"math"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//DMatrix bundles the design matrix with the response column. Missing predictor
//values are encoded as NaN; their presence is detected once at construction so the
//growth path only pays for the filtering when it is actually needed. Both matrices
//are treated as immutable for the lifetime of a sampler.
type DMatrix struct {
	X           *mat.Dense
	Y           *mat.Dense
	RecordIds   []int
	Description *string
	MissingData bool
}

//NewDMatrix wraps a design matrix and a response column, checking dimension
//consistency and scanning the predictors for missing entries.
func NewDMatrix(x, y *mat.Dense) (DMatrix, error) {
	dm := DMatrix{X: x, Y: y}
	if err := dm.validate(); err != nil {
		return DMatrix{}, err
	}
	h := Height(x)
	dm.RecordIds = make([]int, h)
	for p := 0; p < h; p++ {
		dm.RecordIds[p] = p
	}
	dm.MissingData = detectMissing(x)
	return dm, nil
}

//Sets a description for a DMatrix object
func (dm *DMatrix) SetDescription(description string) {
	dm.Description = &description
}

//validate checks the consistency of the dimensions of the current dataset.
func (dm DMatrix) validate() error {
	if dm.X == nil || dm.Y == nil {
		return errors.New("missing design matrix or response")
	}
	h, w := dm.X.Dims()
	if h == 0 || w == 0 {
		return errors.New("empty training data")
	}
	targetH, targetW := dm.Y.Dims()
	if targetH != h {
		return errors.New("the response height is not equal to the design matrix height")
	}
	if targetW != 1 {
		return errors.New("the width of the response should be 1")
	}
	return nil
}

//ResponseValues copies the response column into a plain slice.
func (dm DMatrix) ResponseValues() []float64 {
	h := Height(dm.Y)
	out := make([]float64, h)
	for p := 0; p < h; p++ {
		out[p] = dm.Y.At(p, 0)
	}
	return out
}

func detectMissing(x *mat.Dense) bool {
	h, w := x.Dims()
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			if math.IsNaN(x.At(p, q)) {
				return true
			}
		}
	}
	return false
}

//ReadDMatrix reads the two components of a data set and unites them into one
//DMatrix object
func ReadDMatrix(fileNameX, fileNameY string) (DMatrix, error) {
	log.Print("\ttry to load design matrix <", fileNameX, ">")
	x := ReadNpy(fileNameX)
	log.Print("\ttry to load response <", fileNameY, ">")
	y := ReadNpy(fileNameY)
	return NewDMatrix(x, y)
}

//ReadNpy reads the content of an npy file
func ReadNpy(fileName string) (denseMat *mat.Dense) {
	f, err := os.Open(fileName)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { HandleError(f.Close()) }()

	r, err := npyio.NewReader(f)
	if err != nil {
		log.Fatal(err)
	}

	denseMat = &mat.Dense{}
	HandleError(r.Read(denseMat))
	return
}
