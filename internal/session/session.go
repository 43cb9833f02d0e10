package session

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/inertial"
	"github.com/YusufHosny/r-d/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrTooFewGroundTruth = errors.New("ground truth needs at least 2 samples")
	ErrNotFinite         = errors.New("value is not finite")
	ErrNoOrientations    = errors.New("ground truth has no orientations")
)

// Info describes a stored session without its samples.
type Info struct {
	ID        int64     `json:"id"`
	Dataset   string    `json:"dataset"`
	Name      string    `json:"name"`
	Device    string    `json:"device,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// GroundTruth is the reference track of a session. Orientations is either
// empty or as long as Timestamps.
type GroundTruth struct {
	Timestamps   []float64              `json:"timestamps"`
	Positions    []r3.Vec               `json:"positions"`
	Orientations []inertial.Orientation `json:"orientations,omitempty"`
}

// Trajectory returns the ground truth positions as a trajectory.
func (g GroundTruth) Trajectory() (trajectory.Trajectory, error) {
	return trajectory.New(g.Timestamps, g.Positions)
}

// Validate checks lengths, that every value is finite and that timestamps
// strictly increase.
func (g GroundTruth) Validate() error {
	if len(g.Positions) != len(g.Timestamps) {
		return fmt.Errorf("ground truth has %d timestamps but %d positions", len(g.Timestamps), len(g.Positions))
	}
	if len(g.Orientations) != 0 && len(g.Orientations) != len(g.Timestamps) {
		return fmt.Errorf("ground truth has %d timestamps but %d orientations", len(g.Timestamps), len(g.Orientations))
	}
	for i, ts := range g.Timestamps {
		p := g.Positions[i]
		values := []float64{ts, p.X, p.Y, p.Z}
		if len(g.Orientations) > 0 {
			o := g.Orientations[i]
			values = append(values, o.Roll, o.Pitch, o.Yaw)
		}
		if !finite(values...) {
			return fmt.Errorf("ground truth sample %d: %w", i, ErrNotFinite)
		}
		if i > 0 && !(ts > g.Timestamps[i-1]) {
			return fmt.Errorf("ground truth timestamp %d (%.6f) does not increase past %.6f",
				i, ts, g.Timestamps[i-1])
		}
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Record is one recorded trajectory session.
type Record struct {
	Info
	IMU         []inertial.Sample  `json:"imu"`
	Scans       []fingerprint.Scan `json:"scans"`
	GroundTruth GroundTruth        `json:"groundTruth"`
}

// Validate checks the record for internal consistency. IMU and scan values
// must be finite.
func (r *Record) Validate() error {
	if err := r.GroundTruth.Validate(); err != nil {
		return fmt.Errorf("session '%s': %w", r.Name, err)
	}
	for i, s := range r.IMU {
		if !finite(s.Timestamp, s.Accel.X, s.Accel.Y, s.Accel.Z) {
			return fmt.Errorf("session '%s': imu sample %d: %w", r.Name, i, ErrNotFinite)
		}
	}
	for i, scan := range r.Scans {
		if !finite(scan.Timestamp) {
			return fmt.Errorf("session '%s': scan %d timestamp: %w", r.Name, i, ErrNotFinite)
		}
		for j, o := range scan.Observations {
			if !finite(o.Strength) {
				return fmt.Errorf("session '%s': scan %d observation %d: %w", r.Name, i, j, ErrNotFinite)
			}
		}
	}
	return nil
}

// IMUTimestamps returns the timestamps of the IMU samples.
func (r *Record) IMUTimestamps() []float64 {
	ts := make([]float64, len(r.IMU))
	for i, s := range r.IMU {
		ts[i] = s.Timestamp
	}
	return ts
}

// Orientations returns one orientation per IMU sample. Ground truth orientations
// are used index for index when counts match and held otherwise. A ground
// truth without orientations yields ErrNoOrientations.
func (r *Record) Orientations() ([]inertial.Orientation, error) {
	if len(r.GroundTruth.Orientations) == len(r.IMU) {
		return r.GroundTruth.Orientations, nil
	}
	if len(r.GroundTruth.Orientations) == 0 {
		return nil, fmt.Errorf("session '%s': %w", r.Name, ErrNoOrientations)
	}
	return inertial.HoldOrientations(r.IMUTimestamps(), r.GroundTruth.Timestamps, r.GroundTruth.Orientations)
}
