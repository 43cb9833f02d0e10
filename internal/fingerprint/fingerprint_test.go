package fingerprint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDictionary(t *testing.T) *Dictionary {
	t.Helper()
	d, err := NewDictionary([]string{"aa:01", "aa:02", "aa:03"})
	require.NoError(t, err)
	return d
}

func TestBuildVector(t *testing.T) {
	t.Parallel()
	dict := testDictionary(t)

	t.Run("absent sources keep the default", func(t *testing.T) {
		t.Parallel()
		v, err := BuildVector(Scan{
			Timestamp:    1,
			Observations: []Observation{{SourceID: "aa:02", Strength: -61}},
		}, dict, DefaultStrength)
		require.NoError(t, err)
		assert.Equal(t, []float64{-100, -61, -100}, v)
	})

	t.Run("empty scan is all default", func(t *testing.T) {
		t.Parallel()
		v, err := BuildVector(Scan{Timestamp: 2}, dict, -120)
		require.NoError(t, err)
		assert.Equal(t, []float64{-120, -120, -120}, v)
	})

	t.Run("last observation of a source wins", func(t *testing.T) {
		t.Parallel()
		v, err := BuildVector(Scan{
			Timestamp: 3,
			Observations: []Observation{
				{SourceID: "aa:03", Strength: -40},
				{SourceID: "aa:01", Strength: -70},
				{SourceID: "aa:03", Strength: -55},
			},
		}, dict, DefaultStrength)
		require.NoError(t, err)
		assert.Equal(t, []float64{-70, -100, -55}, v)
	})

	t.Run("unknown source is reported", func(t *testing.T) {
		t.Parallel()
		_, err := BuildVector(Scan{
			Timestamp:    4.5,
			Observations: []Observation{{SourceID: "ff:ff", Strength: -30}},
		}, dict, DefaultStrength)

		var unknown *UnknownSourceError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "ff:ff", unknown.SourceID)
		assert.Equal(t, 4.5, unknown.Timestamp)
		assert.Contains(t, err.Error(), "ff:ff")
	})
}

func TestBuilderBuildInto(t *testing.T) {
	t.Parallel()
	b := NewBuilder(testDictionary(t))
	assert.Equal(t, 3, b.Width())

	dst := []float64{1, 2, 3}
	require.NoError(t, b.BuildInto(dst, Scan{Observations: []Observation{{SourceID: "aa:01", Strength: -50}}}))
	assert.Equal(t, []float64{-50, -100, -100}, dst)

	assert.Error(t, b.BuildInto(make([]float64, 2), Scan{}))
}

func TestUnknownSourceErrorMessage(t *testing.T) {
	t.Parallel()
	err := &UnknownSourceError{Session: "hall-2", ScanIndex: 7, Timestamp: 12.25, SourceID: "de:ad"}
	assert.Equal(t, "session 'hall-2': unknown source 'de:ad' in scan 7 at 12.250000", err.Error())
}
