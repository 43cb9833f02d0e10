package trajectory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is added to the bracketing interval so coincident timestamps never divide by zero.
const Epsilon = 1e-9

const (
	// FailOutOfRange reports a *RangeError for queries outside the ground truth span.
	FailOutOfRange Policy = "fail"
	// ClampToRange returns the nearest endpoint position for out of range queries.
	ClampToRange Policy = "clamp"
)

var (
	ErrNoGroundTruth  = errors.New("no ground truth samples")
	ErrLengthMismatch = errors.New("timestamps and positions differ in length")
)

// Policy decides what happens to a query outside the ground truth time span.
type Policy string

func (p Policy) String() string {
	return string(p)
}

// ParsePolicy parses a policy name, case-insensitively. An empty name selects FailOutOfRange.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailOutOfRange:
		return FailOutOfRange, nil
	case ClampToRange:
		return ClampToRange, nil
	default:
		return "", fmt.Errorf("trajectory: unknown out of range policy '%s'", s)
	}
}

// RangeError is returned when a query timestamp is not covered by ground truth.
type RangeError struct {
	Timestamp float64
	Min       float64
	Max       float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("timestamp %.6f outside ground truth range [%.6f, %.6f]", e.Timestamp, e.Min, e.Max)
}

// WithPolicy sets the out of range policy of the interpolator
func WithPolicy(p Policy) func(*Interpolator) {
	return func(in *Interpolator) {
		in.policy = p
	}
}

// Interpolator maps query timestamps onto a ground truth track by exact match
// or by linear interpolation between the bracketing samples.
//
// Ground truth timestamps are expected to be strictly increasing. The zero value
// is ready to use and fails on out of range queries.
type Interpolator struct {
	policy Policy
}

// NewInterpolator creates a new Interpolator
func NewInterpolator(options ...func(*Interpolator)) *Interpolator {
	in := Interpolator{policy: FailOutOfRange}
	for _, option := range options {
		option(&in)
	}
	return &in
}

// Policy returns the configured out of range policy.
func (in *Interpolator) Policy() Policy {
	if in.policy == "" {
		return FailOutOfRange
	}
	return in.policy
}

// PositionAt estimates the ground truth position at query.
func (in *Interpolator) PositionAt(query float64, timestamps []float64, positions []r3.Vec) (r3.Vec, error) {
	if len(timestamps) != len(positions) {
		return r3.Vec{}, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(timestamps), len(positions))
	}
	if len(timestamps) == 0 {
		return r3.Vec{}, ErrNoGroundTruth
	}

	// first index with timestamps[i] >= query
	i := sort.SearchFloat64s(timestamps, query)
	if i < len(timestamps) && timestamps[i] == query {
		return positions[i], nil
	}

	if i == 0 || i == len(timestamps) {
		if in.Policy() == ClampToRange {
			return positions[min(i, len(positions)-1)], nil
		}
		return r3.Vec{}, &RangeError{
			Timestamp: query,
			Min:       timestamps[0],
			Max:       timestamps[len(timestamps)-1],
		}
	}

	prev, next := i-1, i
	return lerp(query, timestamps[prev], timestamps[next], positions[prev], positions[next]), nil
}

// Resample interpolates the ground truth track at every query timestamp.
func (in *Interpolator) Resample(queries []float64, timestamps []float64, positions []r3.Vec) ([]r3.Vec, error) {
	out := make([]r3.Vec, len(queries))
	for i, q := range queries {
		p, err := in.PositionAt(q, timestamps, positions)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// PositionAt estimates the ground truth position at query, failing for
// timestamps outside the ground truth span.
func PositionAt(query float64, timestamps []float64, positions []r3.Vec) (r3.Vec, error) {
	return NewInterpolator().PositionAt(query, timestamps, positions)
}

// lerp: p1 + (t - t1) * (p2 - p1) / (t2 - t1 + Epsilon), evaluated per axis.
func lerp(t, t1, t2 float64, p1, p2 r3.Vec) r3.Vec {
	dt := t - t1
	den := t2 - t1 + Epsilon
	d := r3.Sub(p2, p1)
	return r3.Vec{
		X: p1.X + dt*d.X/den,
		Y: p1.Y + dt*d.Y/den,
		Z: p1.Z + dt*d.Z/den,
	}
}
