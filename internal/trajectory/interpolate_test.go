package trajectory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	gtTimestamps = []float64{0, 1, 2.5, 4}
	gtPositions  = []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: -1, Z: 0.5},
		{X: 2, Y: 3, Z: 1},
		{X: -4, Y: 3, Z: 1},
	}
)

func TestPositionAtExactMatch(t *testing.T) {
	t.Parallel()

	for k, ts := range gtTimestamps {
		got, err := PositionAt(ts, gtTimestamps, gtPositions)
		require.NoError(t, err)
		assert.Equal(t, gtPositions[k], got, "ground truth sample %d", k)
	}
}

func TestPositionAtConvexCombination(t *testing.T) {
	t.Parallel()

	for k := 0; k < len(gtTimestamps)-1; k++ {
		tk, tk1 := gtTimestamps[k], gtTimestamps[k+1]
		for _, frac := range []float64{0.1, 0.25, 0.5, 0.9} {
			q := tk + frac*(tk1-tk)
			got, err := PositionAt(q, gtTimestamps, gtPositions)
			require.NoError(t, err)

			w := (q - tk) / (tk1 - tk)
			want := r3.Add(r3.Scale(1-w, gtPositions[k]), r3.Scale(w, gtPositions[k+1]))
			assert.InDelta(t, want.X, got.X, 1e-6)
			assert.InDelta(t, want.Y, got.Y, 1e-6)
			assert.InDelta(t, want.Z, got.Z, 1e-6)
		}
	}
}

func TestPositionAtOutOfRange(t *testing.T) {
	t.Parallel()

	t.Run("fails by default", func(t *testing.T) {
		t.Parallel()
		for _, q := range []float64{-0.5, 4.01} {
			_, err := PositionAt(q, gtTimestamps, gtPositions)
			var rangeErr *RangeError
			require.True(t, errors.As(err, &rangeErr), "query %v", q)
			assert.Equal(t, q, rangeErr.Timestamp)
			assert.Equal(t, 0.0, rangeErr.Min)
			assert.Equal(t, 4.0, rangeErr.Max)
		}
	})

	t.Run("clamps to nearest endpoint", func(t *testing.T) {
		t.Parallel()
		in := NewInterpolator(WithPolicy(ClampToRange))

		before, err := in.PositionAt(-10, gtTimestamps, gtPositions)
		require.NoError(t, err)
		assert.Equal(t, gtPositions[0], before)

		after, err := in.PositionAt(10, gtTimestamps, gtPositions)
		require.NoError(t, err)
		assert.Equal(t, gtPositions[3], after)
	})

	t.Run("single sample only matches exactly", func(t *testing.T) {
		t.Parallel()
		ts := []float64{3}
		ps := []r3.Vec{{X: 1, Y: 2, Z: 3}}

		got, err := PositionAt(3, ts, ps)
		require.NoError(t, err)
		assert.Equal(t, ps[0], got)

		_, err = PositionAt(3.5, ts, ps)
		var rangeErr *RangeError
		assert.ErrorAs(t, err, &rangeErr)
	})
}

func TestPositionAtInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := PositionAt(0, nil, nil)
	assert.ErrorIs(t, err, ErrNoGroundTruth)

	_, err = PositionAt(0, []float64{0, 1}, []r3.Vec{{}})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestResample(t *testing.T) {
	t.Parallel()

	in := NewInterpolator()
	got, err := in.Resample([]float64{0, 0.5, 4}, gtTimestamps, gtPositions)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, gtPositions[0], got[0])
	assert.InDelta(t, 1.0, got[1].X, 1e-6)
	assert.InDelta(t, -0.5, got[1].Y, 1e-6)
	assert.Equal(t, gtPositions[3], got[2])

	_, err = in.Resample([]float64{0, 5}, gtTimestamps, gtPositions)
	var rangeErr *RangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: FailOutOfRange},
		{in: "fail", want: FailOutOfRange},
		{in: " Clamp ", want: ClampToRange},
		{in: "extrapolate", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
