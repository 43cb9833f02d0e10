package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sample is a single timestamped position. Timestamps are seconds.
type Sample struct {
	Timestamp float64 `json:"timestamp"`
	Position  r3.Vec  `json:"position"`
}

// Trajectory is an ordered sequence of samples.
type Trajectory []Sample

// New zips timestamps and positions into a Trajectory.
func New(timestamps []float64, positions []r3.Vec) (Trajectory, error) {
	if len(timestamps) != len(positions) {
		return nil, fmt.Errorf("trajectory: %d timestamps but %d positions", len(timestamps), len(positions))
	}

	t := make(Trajectory, len(timestamps))
	for i := range timestamps {
		t[i] = Sample{Timestamp: timestamps[i], Position: positions[i]}
	}
	return t, nil
}

func (t Trajectory) Len() int {
	return len(t)
}

// Timestamps returns a copy of the sample timestamps.
func (t Trajectory) Timestamps() []float64 {
	ts := make([]float64, len(t))
	for i, s := range t {
		ts[i] = s.Timestamp
	}
	return ts
}

// Positions returns a copy of the sample positions.
func (t Trajectory) Positions() []r3.Vec {
	ps := make([]r3.Vec, len(t))
	for i, s := range t {
		ps[i] = s.Position
	}
	return ps
}

// Span returns the first and last timestamps. ok is false for an empty trajectory.
func (t Trajectory) Span() (start, end float64, ok bool) {
	if len(t) == 0 {
		return 0, 0, false
	}
	return t[0].Timestamp, t[len(t)-1].Timestamp, true
}
