package inertial

import (
	"fmt"
	"sort"
)

// HoldOrientations picks, for every query timestamp, the latest reference
// orientation at or before it. Queries before the first reference take the
// first orientation. Reference timestamps must be increasing.
func HoldOrientations(queries []float64, timestamps []float64, orientations []Orientation) ([]Orientation, error) {
	if len(timestamps) != len(orientations) {
		return nil, fmt.Errorf("%w: %d timestamps, %d orientations", ErrLengthMismatch, len(timestamps), len(orientations))
	}
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("orientations: %w", ErrNoSamples)
	}

	out := make([]Orientation, len(queries))
	for i, q := range queries {
		// first index strictly after q
		j := sort.Search(len(timestamps), func(k int) bool { return timestamps[k] > q })
		out[i] = orientations[max(j-1, 0)]
	}
	return out, nil
}
