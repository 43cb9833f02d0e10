package inertial

import (
	"errors"
	"fmt"

	"github.com/YusufHosny/r-d/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNoSamples      = errors.New("no samples")
	ErrLengthMismatch = errors.New("input lengths differ")
)

// TimeOrderError is returned in strict mode when a timestamp does not advance.
type TimeOrderError struct {
	Index    int
	Previous float64
	Current  float64
}

func (e *TimeOrderError) Error() string {
	return fmt.Sprintf("sample %d: timestamp %.6f does not advance past %.6f", e.Index, e.Current, e.Previous)
}

// State is the integrator state after a sample.
type State struct {
	Timestamp float64
	Velocity  r3.Vec
	Position  r3.Vec
}

// WithGravity overrides the gravity magnitude added on the world Z axis
func WithGravity(g float64) func(*Integrator) {
	return func(in *Integrator) {
		in.gravity = g
	}
}

// WithStrictTime rejects samples whose timestamp does not advance
func WithStrictTime() func(*Integrator) {
	return func(in *Integrator) {
		in.strictTime = true
	}
}

// Integrator dead-reckons positions by double integration of acceleration.
type Integrator struct {
	gravity    float64
	strictTime bool
}

// NewIntegrator creates a new Integrator
func NewIntegrator(options ...func(*Integrator)) *Integrator {
	in := Integrator{gravity: StandardGravity}
	for _, option := range options {
		option(&in)
	}
	return &in
}

// States integrates world frame acceleration sample to sample, starting at
// rest at the origin:
//
//	dt   = t[i] - t[i-1]
//	v[i] = v[i-1] + a[i]·dt
//	p[i] = p[i-1] + v[i]·dt + ½·a[i]·dt²
//
// Irregular sampling is integrated as is. Unless strict time is enabled, a
// non-positive dt is integrated like any other.
func (in *Integrator) States(timestamps []float64, accel []r3.Vec) ([]State, error) {
	if len(timestamps) != len(accel) {
		return nil, fmt.Errorf("%w: %d timestamps, %d accelerations", ErrLengthMismatch, len(timestamps), len(accel))
	}
	if len(timestamps) == 0 {
		return nil, ErrNoSamples
	}

	states := make([]State, len(timestamps))
	states[0].Timestamp = timestamps[0]

	var v r3.Vec
	for i := 1; i < len(timestamps); i++ {
		dt := timestamps[i] - timestamps[i-1]
		if in.strictTime && dt <= 0 {
			return nil, &TimeOrderError{Index: i, Previous: timestamps[i-1], Current: timestamps[i]}
		}

		a := accel[i]
		v = r3.Add(v, r3.Scale(dt, a))
		p := r3.Add(states[i-1].Position, r3.Add(r3.Scale(dt, v), r3.Scale(0.5*dt*dt, a)))

		states[i] = State{Timestamp: timestamps[i], Velocity: v, Position: p}
	}

	return states, nil
}

// Integrate returns the position trajectory of States.
func (in *Integrator) Integrate(timestamps []float64, accel []r3.Vec) (trajectory.Trajectory, error) {
	states, err := in.States(timestamps, accel)
	if err != nil {
		return nil, err
	}

	t := make(trajectory.Trajectory, len(states))
	for i, s := range states {
		t[i] = trajectory.Sample{Timestamp: s.Timestamp, Position: s.Position}
	}
	return t, nil
}

// DeadReckon rotates each sample into the world frame with the orientation at
// the same index and integrates the result.
func (in *Integrator) DeadReckon(samples []Sample, orientations []Orientation) (trajectory.Trajectory, error) {
	if len(samples) != len(orientations) {
		return nil, fmt.Errorf("%w: %d samples, %d orientations", ErrLengthMismatch, len(samples), len(orientations))
	}

	timestamps := make([]float64, len(samples))
	world := make([]r3.Vec, len(samples))
	for i, s := range samples {
		timestamps[i] = s.Timestamp
		world[i] = ToWorldFrame(s.Accel, orientations[i], in.gravity)
	}

	return in.Integrate(timestamps, world)
}

// Integrate integrates world frame acceleration with the default integrator.
func Integrate(timestamps []float64, accel []r3.Vec) (trajectory.Trajectory, error) {
	return NewIntegrator().Integrate(timestamps, accel)
}

// DeadReckon dead-reckons body frame samples with the default integrator.
func DeadReckon(samples []Sample, orientations []Orientation, options ...func(*Integrator)) (trajectory.Trajectory, error) {
	return NewIntegrator(options...).DeadReckon(samples, orientations)
}
