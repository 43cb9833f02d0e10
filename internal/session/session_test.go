package session

import (
	"math"
	"testing"

	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/inertial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGroundTruthValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		gt      GroundTruth
		wantErr string
	}{
		{
			name: "valid without orientations",
			gt:   GroundTruth{Timestamps: []float64{0, 1}, Positions: []r3.Vec{{}, {}}},
		},
		{
			name:    "position count",
			gt:      GroundTruth{Timestamps: []float64{0, 1}, Positions: []r3.Vec{{}}},
			wantErr: "2 timestamps but 1 positions",
		},
		{
			name: "orientation count",
			gt: GroundTruth{
				Timestamps:   []float64{0, 1},
				Positions:    []r3.Vec{{}, {}},
				Orientations: []inertial.Orientation{{}},
			},
			wantErr: "1 orientations",
		},
		{
			name:    "repeated timestamp",
			gt:      GroundTruth{Timestamps: []float64{0, 1, 1}, Positions: []r3.Vec{{}, {}, {}}},
			wantErr: "timestamp 2",
		},
		{
			name:    "NaN timestamp",
			gt:      GroundTruth{Timestamps: []float64{0, math.NaN(), 2}, Positions: []r3.Vec{{}, {}, {}}},
			wantErr: "sample 1: value is not finite",
		},
		{
			name:    "infinite position",
			gt:      GroundTruth{Timestamps: []float64{0, 1}, Positions: []r3.Vec{{}, {Y: math.Inf(1)}}},
			wantErr: "sample 1: value is not finite",
		},
		{
			name: "NaN orientation",
			gt: GroundTruth{
				Timestamps:   []float64{0, 1},
				Positions:    []r3.Vec{{}, {}},
				Orientations: []inertial.Orientation{{Yaw: math.NaN()}, {}},
			},
			wantErr: "sample 0: value is not finite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.gt.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRecordOrientations(t *testing.T) {
	t.Parallel()

	gt := GroundTruth{
		Timestamps:   []float64{0, 1},
		Positions:    []r3.Vec{{}, {}},
		Orientations: []inertial.Orientation{{Yaw: 1}, {Yaw: 2}},
	}

	t.Run("index for index", func(t *testing.T) {
		t.Parallel()
		rec := Record{GroundTruth: gt, IMU: []inertial.Sample{{Timestamp: 0.7}, {Timestamp: 0.8}}}
		got, err := rec.Orientations()
		require.NoError(t, err)
		assert.Equal(t, gt.Orientations, got)
	})

	t.Run("held", func(t *testing.T) {
		t.Parallel()
		rec := Record{GroundTruth: gt, IMU: []inertial.Sample{{Timestamp: 0}, {Timestamp: 0.5}, {Timestamp: 1.5}}}
		got, err := rec.Orientations()
		require.NoError(t, err)
		assert.Equal(t, []inertial.Orientation{{Yaw: 1}, {Yaw: 1}, {Yaw: 2}}, got)
	})

	t.Run("no orientations", func(t *testing.T) {
		t.Parallel()
		bare := gt
		bare.Orientations = nil
		rec := Record{Info: Info{Name: "corridor"}, GroundTruth: bare, IMU: []inertial.Sample{{Timestamp: 0.5}}}
		_, err := rec.Orientations()
		assert.ErrorIs(t, err, ErrNoOrientations)
		assert.ErrorContains(t, err, "session 'corridor'")
	})
}

func TestRecordValidateNamesSession(t *testing.T) {
	t.Parallel()

	rec := Record{Info: Info{Name: "corridor"}, GroundTruth: GroundTruth{Timestamps: []float64{1, 0}, Positions: []r3.Vec{{}, {}}}}
	assert.ErrorContains(t, rec.Validate(), "session 'corridor'")
}

func TestRecordValidateRejectsNonFinite(t *testing.T) {
	t.Parallel()

	gt := GroundTruth{Timestamps: []float64{0, 1}, Positions: []r3.Vec{{}, {}}}

	tests := []struct {
		name    string
		rec     Record
		wantErr string
	}{
		{
			name:    "imu acceleration",
			rec:     Record{GroundTruth: gt, IMU: []inertial.Sample{{Timestamp: 0, Accel: r3.Vec{Z: math.NaN()}}}},
			wantErr: "imu sample 0",
		},
		{
			name:    "scan timestamp",
			rec:     Record{GroundTruth: gt, Scans: []fingerprint.Scan{{Timestamp: math.Inf(-1)}}},
			wantErr: "scan 0 timestamp",
		},
		{
			name: "observation strength",
			rec: Record{GroundTruth: gt, Scans: []fingerprint.Scan{
				{Timestamp: 0.5, Observations: []fingerprint.Observation{{SourceID: "aa", Strength: -40}, {SourceID: "bb", Strength: math.NaN()}}},
			}},
			wantErr: "scan 0 observation 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.rec.Validate()
			assert.ErrorIs(t, err, ErrNotFinite)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
