package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCompareMatrices(t *testing.T) {
	t.Parallel()

	t.Run("distance metrics", func(t *testing.T) {
		t.Parallel()
		pred := mat.NewDense(2, 3, []float64{0, 0, 0, 3, 4, 0})
		truth := mat.NewDense(2, 3, nil)

		got, err := CompareMatrices(pred, truth)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Samples)
		assert.InDelta(t, 2.5, got.ADE, 1e-12)
		assert.InDelta(t, 5, got.MDE, 1e-12)
		assert.InDelta(t, 12.5, got.MSDE, 1e-12)
		// constant truth: x and y miss, z is exact
		assert.InDelta(t, 1.0/3, got.R2, 1e-12)
	})

	t.Run("perfect prediction", func(t *testing.T) {
		t.Parallel()
		truth := mat.NewDense(3, 3, []float64{0, 1, 2, 3, 4, 5, 6, 7, 9})
		got, err := CompareMatrices(truth, truth)
		require.NoError(t, err)
		assert.Zero(t, got.ADE)
		assert.InDelta(t, 1, got.R2, 1e-12)
	})

	t.Run("predicting the mean scores zero", func(t *testing.T) {
		t.Parallel()
		truth := mat.NewDense(2, 1, []float64{1, 3})
		pred := mat.NewDense(2, 1, []float64{2, 2})
		got, err := CompareMatrices(pred, truth)
		require.NoError(t, err)
		assert.InDelta(t, 0, got.R2, 1e-12)
		assert.InDelta(t, 1, got.ADE, 1e-12)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := CompareMatrices(mat.NewDense(2, 3, nil), mat.NewDense(3, 3, nil))
		assert.Error(t, err)
	})
}
