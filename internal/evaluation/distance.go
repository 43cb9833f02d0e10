package evaluation

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrEmpty = errors.New("no predictions")

// DistanceReport summarises per sample Euclidean errors of predicted positions.
type DistanceReport struct {
	Samples int     `json:"samples"`
	ADE     float64 `json:"ade"`  // average distance error
	MDE     float64 `json:"mde"`  // maximum distance error
	MSDE    float64 `json:"msde"` // mean squared distance error
	R2      float64 `json:"r2"`   // coefficient of determination, averaged over axes
}

// CompareMatrices scores predictions against labels. Both matrices hold one
// position per row.
func CompareMatrices(pred, truth mat.Matrix) (DistanceReport, error) {
	pr, pc := pred.Dims()
	tr, tc := truth.Dims()
	if pr != tr || pc != tc {
		return DistanceReport{}, fmt.Errorf("prediction is %dx%d, labels are %dx%d", pr, pc, tr, tc)
	}
	if pr == 0 {
		return DistanceReport{}, ErrEmpty
	}

	dists := make([]float64, pr)
	p, t := make([]float64, pc), make([]float64, pc)
	for i := range pr {
		mat.Row(p, i, pred)
		mat.Row(t, i, truth)
		dists[i] = floats.Distance(p, t, 2)
	}

	var sq float64
	for _, d := range dists {
		sq += d * d
	}

	return DistanceReport{
		Samples: pr,
		ADE:     stat.Mean(dists, nil),
		MDE:     floats.Max(dists),
		MSDE:    sq / float64(pr),
		R2:      r2Score(pred, truth),
	}, nil
}

// r2Score averages the per column coefficient of determination. A constant
// column scores 1 when predicted exactly and 0 otherwise.
func r2Score(pred, truth mat.Matrix) float64 {
	rows, cols := truth.Dims()
	p, t := make([]float64, rows), make([]float64, rows)

	var total float64
	for j := range cols {
		mat.Col(p, j, pred)
		mat.Col(t, j, truth)

		mean := stat.Mean(t, nil)
		var ssTot, ssRes float64
		for i := range t {
			ssTot += (t[i] - mean) * (t[i] - mean)
			ssRes += (t[i] - p[i]) * (t[i] - p[i])
		}

		switch {
		case ssTot != 0:
			total += stat.RSquaredFrom(p, t, nil)
		case ssRes == 0:
			total++
		}
	}
	return total / float64(cols)
}
