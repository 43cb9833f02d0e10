// Package knn implements a distance weighted k-nearest-neighbour regressor
// over fingerprint feature vectors.
//
// A prediction is the mean of the k nearest training labels, weighted by
// 1 / (distance + Epsilon) so that an exact fingerprint match dominates.
package knn

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultK is the neighbour count used by the fingerprint CLI.
const DefaultK = 5

// Epsilon keeps the weight of an exact match finite.
const Epsilon = 1e-9

var ErrNotFitted = errors.New("regressor is not fitted")

type distancePair struct {
	index    int
	distance float64
}

// Regressor is safe for concurrent Predict calls.
type Regressor struct {
	mu       sync.RWMutex
	k        int
	features *mat.Dense
	labels   *mat.Dense
}

// New creates a regressor using k neighbours.
func New(k int) (*Regressor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid neighbour count: %d", k)
	}
	return &Regressor{k: k}, nil
}

// Fit stores copies of the training rows.
func (r *Regressor) Fit(features, labels mat.Matrix) error {
	fr, _ := features.Dims()
	lr, _ := labels.Dims()
	if fr != lr {
		return fmt.Errorf("%d feature rows but %d label rows", fr, lr)
	}
	if fr == 0 {
		return errors.New("no training rows")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.features = mat.DenseCopyOf(features)
	r.labels = mat.DenseCopyOf(labels)
	return nil
}

// Predict returns one label row per feature row.
func (r *Regressor) Predict(features mat.Matrix) (*mat.Dense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.features == nil {
		return nil, ErrNotFitted
	}

	rows, cols := features.Dims()
	n, trainCols := r.features.Dims()
	if cols != trainCols {
		return nil, fmt.Errorf("features have %d columns, model was fitted on %d", cols, trainCols)
	}
	if rows == 0 {
		return nil, errors.New("no rows to predict")
	}
	_, labelCols := r.labels.Dims()

	k := min(r.k, n)
	out := mat.NewDense(rows, labelCols, nil)
	query := make([]float64, cols)
	pairs := make([]distancePair, n)

	for i := range rows {
		mat.Row(query, i, features)
		for j := range n {
			pairs[j] = distancePair{index: j, distance: floats.Distance(query, r.features.RawRowView(j), 2)}
		}
		sort.SliceStable(pairs, func(a, b int) bool {
			return pairs[a].distance < pairs[b].distance
		})

		dst := out.RawRowView(i)
		var total float64
		for _, p := range pairs[:k] {
			w := 1 / (p.distance + Epsilon)
			floats.AddScaled(dst, w, r.labels.RawRowView(p.index))
			total += w
		}
		floats.Scale(1/total, dst)
	}

	return out, nil
}
