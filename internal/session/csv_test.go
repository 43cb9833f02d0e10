package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/inertial"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReadDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "lab-walk")
	require.NoError(t, os.Mkdir(dir, 0o755))

	writeTestFile(t, dir, GroundTruthFile, "timestamp,x,y,z,roll,pitch,yaw\n0,0,0,0,0,0,0\n1.5,1,2,0.5,1,2,90\n")
	writeTestFile(t, dir, IMUFile, "timestamp,ax,ay,az\n0.1,0,0,-9.81\n0.2,0.5,0,-9.8\n")
	writeTestFile(t, dir, ScansFile, "timestamp,count,bssid,rssi\n0.5,2,aa:bb,-40,cc:dd,-70\n1.0,1,aa:bb,-42,,\n")

	rec, err := ReadDir(dir)
	require.NoError(t, err)

	want := &Record{
		Info: Info{Name: "lab-walk"},
		IMU: []inertial.Sample{
			{Timestamp: 0.1, Accel: r3.Vec{Z: -9.81}},
			{Timestamp: 0.2, Accel: r3.Vec{X: 0.5, Z: -9.8}},
		},
		Scans: []fingerprint.Scan{
			{Timestamp: 0.5, Observations: []fingerprint.Observation{{SourceID: "aa:bb", Strength: -40}, {SourceID: "cc:dd", Strength: -70}}},
			{Timestamp: 1.0, Observations: []fingerprint.Observation{{SourceID: "aa:bb", Strength: -42}}},
		},
		GroundTruth: GroundTruth{
			Timestamps:   []float64{0, 1.5},
			Positions:    []r3.Vec{{}, {X: 1, Y: 2, Z: 0.5}},
			Orientations: []inertial.Orientation{{}, {Roll: 1, Pitch: 2, Yaw: 90}},
		},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("ReadDir() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadDirOptionalFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, GroundTruthFile, "0,0,0,0,0,0,0\n1,1,0,0,0,0,0\n")

	rec, err := ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, rec.IMU)
	assert.Empty(t, rec.Scans)
	assert.Len(t, rec.GroundTruth.Timestamps, 2)
}

func TestReadDirErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing ground truth", func(t *testing.T) {
		t.Parallel()
		_, err := ReadDir(t.TempDir())
		assert.ErrorContains(t, err, GroundTruthFile)
	})

	t.Run("bad scan row names the line", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, GroundTruthFile, "0,0,0,0,0,0,0\n1,1,0,0,0,0,0\n")
		writeTestFile(t, dir, ScansFile, "timestamp,count,bssid,rssi\n0.5,1,aa:bb,-40\n0.6,3,aa:bb,-40\n")
		_, err := ReadDir(dir)
		assert.ErrorContains(t, err, "wifi.csv line 3")
	})

	t.Run("ground truth out of order", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, GroundTruthFile, "1,0,0,0,0,0,0\n0,1,0,0,0,0,0\n")
		_, err := ReadDir(dir)
		assert.ErrorContains(t, err, "does not increase")
	})

	t.Run("NaN ground truth timestamp", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, GroundTruthFile, "0,0,0,0,0,0,0\nNaN,1,0,0,0,0,0\n2,2,0,0,0,0,0\n")
		_, err := ReadDir(dir)
		assert.ErrorIs(t, err, ErrNotFinite)
		assert.ErrorContains(t, err, "groundtruth.csv line 2")
	})

	t.Run("NaN scan strength", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, GroundTruthFile, "0,0,0,0,0,0,0\n2,2,0,0,0,0,0\n")
		writeTestFile(t, dir, ScansFile, "1.5,1,aa,NaN\n")
		_, err := ReadDir(dir)
		assert.ErrorIs(t, err, fingerprint.ErrNotFinite)
		assert.ErrorContains(t, err, "wifi.csv line 1")
	})

	t.Run("infinite acceleration", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, GroundTruthFile, "0,0,0,0,0,0,0\n2,2,0,0,0,0,0\n")
		writeTestFile(t, dir, IMUFile, "timestamp,ax,ay,az\n0.1,0,+Inf,-9.81\n")
		_, err := ReadDir(dir)
		assert.ErrorIs(t, err, ErrNotFinite)
		assert.ErrorContains(t, err, "imu.csv line 2")
	})
}

func TestWriteDirReadBack(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "export")
	rec := &Record{
		Info: Info{Name: "export"},
		IMU:  []inertial.Sample{{Timestamp: 0.25, Accel: r3.Vec{X: 0.125, Y: -1, Z: -9.81}}},
		Scans: []fingerprint.Scan{
			{Timestamp: 0.5, Observations: []fingerprint.Observation{{SourceID: "aa:bb", Strength: -51}}},
		},
		GroundTruth: GroundTruth{
			Timestamps:   []float64{0, 1},
			Positions:    []r3.Vec{{}, {X: 3}},
			Orientations: []inertial.Orientation{{}, {Yaw: 45}},
		},
	}

	require.NoError(t, WriteDir(dir, rec))
	got, err := ReadDir(dir)
	require.NoError(t, err)
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("read back mismatch (-want +got):\n%s", diff)
	}
}
