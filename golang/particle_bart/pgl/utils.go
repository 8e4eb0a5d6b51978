package pgl

import (
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
)

//HandleError interrupts the execution if its argument is not nil.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//Height returns the number of rows of a matrix.
func Height(m mat.Matrix) int {
	h, _ := m.Dims()
	return h
}

//isFinite reports whether x is neither infinite nor NaN.
func isFinite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}

//gather collects the entries of values at the given row indices.
func gather(values []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = values[row]
	}
	return out
}

//gatherColumn collects one column of the design matrix at the given row indices.
func gatherColumn(x *mat.Dense, rows []int, col int) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = x.At(row, col)
	}
	return out
}
