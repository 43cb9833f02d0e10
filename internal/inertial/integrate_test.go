package inertial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestIntegrateZeroMotion(t *testing.T) {
	t.Parallel()

	ts := []float64{0, 0.01, 0.025, 0.5, 0.51, 3}
	accel := make([]r3.Vec, len(ts))

	tr, err := Integrate(ts, accel)
	require.NoError(t, err)
	require.Len(t, tr, len(ts))
	for i, s := range tr {
		assert.Equal(t, ts[i], s.Timestamp)
		assert.Equal(t, r3.Vec{}, s.Position, "sample %d", i)
	}
}

func TestIntegrateScenario(t *testing.T) {
	t.Parallel()

	ts := []float64{0, 1, 2}
	accel := []r3.Vec{{}, {X: 1}, {X: 1}}

	states, err := NewIntegrator().States(ts, accel)
	require.NoError(t, err)
	require.Len(t, states, 3)

	assert.Equal(t, r3.Vec{}, states[0].Velocity)
	assert.Equal(t, r3.Vec{}, states[0].Position)

	// the position term uses the updated velocity
	assert.Equal(t, r3.Vec{X: 1}, states[1].Velocity)
	assert.Equal(t, r3.Vec{X: 1.5}, states[1].Position)

	assert.Equal(t, r3.Vec{X: 2}, states[2].Velocity)
	assert.Equal(t, r3.Add(states[1].Position, r3.Vec{X: 2 + 0.5}), states[2].Position)
	assert.Equal(t, r3.Vec{X: 4}, states[2].Position)
}

func TestIntegrateTimeOrder(t *testing.T) {
	t.Parallel()

	ts := []float64{0, 1, 1, 0.5}
	accel := []r3.Vec{{}, {X: 1}, {X: 1}, {X: 1}}

	t.Run("non-advancing time is integrated", func(t *testing.T) {
		t.Parallel()
		tr, err := Integrate(ts, accel)
		require.NoError(t, err)
		assert.Equal(t, tr[1].Position, tr[2].Position)
		// dt = -0.5 with v = 0.5: 1.5 - 0.25 + 0.125
		assert.InDelta(t, 1.375, tr[3].Position.X, 1e-12)
	})

	t.Run("strict mode rejects it", func(t *testing.T) {
		t.Parallel()
		_, err := NewIntegrator(WithStrictTime()).Integrate(ts, accel)
		var orderErr *TimeOrderError
		require.True(t, errors.As(err, &orderErr))
		assert.Equal(t, 2, orderErr.Index)
		assert.Equal(t, 1.0, orderErr.Previous)
	})
}

func TestIntegrateInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Integrate(nil, nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Integrate([]float64{0, 1}, []r3.Vec{{}})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDeadReckon(t *testing.T) {
	t.Parallel()

	t.Run("gravity only stays put", func(t *testing.T) {
		t.Parallel()
		samples := []Sample{
			{Timestamp: 0, Accel: r3.Vec{Z: -StandardGravity}},
			{Timestamp: 0.1, Accel: r3.Vec{Z: -StandardGravity}},
			{Timestamp: 0.2, Accel: r3.Vec{Z: -StandardGravity}},
		}
		tr, err := DeadReckon(samples, make([]Orientation, len(samples)))
		require.NoError(t, err)
		for _, s := range tr {
			assert.Equal(t, r3.Vec{}, s.Position)
		}
	})

	t.Run("heading rotates the track", func(t *testing.T) {
		t.Parallel()
		samples := []Sample{{Timestamp: 0}, {Timestamp: 1, Accel: r3.Vec{X: 1}}}
		orientations := []Orientation{{Yaw: 90}, {Yaw: 90}}

		tr, err := DeadReckon(samples, orientations, WithGravity(0))
		require.NoError(t, err)
		assertVecInDelta(t, r3.Vec{Y: -1.5}, tr[1].Position, 1e-12)
	})

	t.Run("orientation count must match", func(t *testing.T) {
		t.Parallel()
		_, err := DeadReckon([]Sample{{}, {}}, []Orientation{{}})
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})
}

func TestHoldOrientations(t *testing.T) {
	t.Parallel()

	ref := []float64{1, 2, 3}
	orientations := []Orientation{{Yaw: 10}, {Yaw: 20}, {Yaw: 30}}

	got, err := HoldOrientations([]float64{0.5, 1, 1.9, 2, 2.5, 9}, ref, orientations)
	require.NoError(t, err)
	assert.Equal(t, []Orientation{
		{Yaw: 10}, {Yaw: 10}, {Yaw: 10}, {Yaw: 20}, {Yaw: 20}, {Yaw: 30},
	}, got)

	_, err = HoldOrientations([]float64{1}, nil, nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = HoldOrientations([]float64{1}, ref, orientations[:2])
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
