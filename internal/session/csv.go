package session

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/inertial"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	IMUFile         = "imu.csv"
	ScansFile       = "wifi.csv"
	GroundTruthFile = "groundtruth.csv"
)

var (
	imuHeader         = []string{"timestamp", "ax", "ay", "az"}
	scansHeader       = []string{"timestamp", "count", "bssid", "rssi"}
	groundTruthHeader = []string{"timestamp", "x", "y", "z", "roll", "pitch", "yaw"}
)

// ReadDir reads a session directory. The session is named after the
// directory. A missing scans or IMU file yields no samples of that kind; the
// ground truth file is required.
func ReadDir(dir string) (*Record, error) {
	rec := &Record{Info: Info{Name: filepath.Base(dir)}}

	if err := readFile(filepath.Join(dir, GroundTruthFile), false, func(row []string) error {
		return rec.appendGroundTruth(row)
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, IMUFile), true, func(row []string) error {
		s, err := parseIMU(row)
		if err != nil {
			return err
		}
		rec.IMU = append(rec.IMU, s)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, ScansFile), true, func(row []string) error {
		s, err := fingerprint.ParseRow(row)
		if err != nil {
			return err
		}
		rec.Scans = append(rec.Scans, s)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// WriteDir writes the record in the layout ReadDir reads.
func WriteDir(dir string, rec *Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	gt := rec.GroundTruth
	rows := make([][]string, len(gt.Timestamps))
	for i := range gt.Timestamps {
		var o inertial.Orientation
		if len(gt.Orientations) > 0 {
			o = gt.Orientations[i]
		}
		rows[i] = formatFloats(gt.Timestamps[i],
			gt.Positions[i].X, gt.Positions[i].Y, gt.Positions[i].Z,
			o.Roll, o.Pitch, o.Yaw)
	}
	if err := writeFile(filepath.Join(dir, GroundTruthFile), groundTruthHeader, rows); err != nil {
		return err
	}

	rows = make([][]string, len(rec.IMU))
	for i, s := range rec.IMU {
		rows[i] = formatFloats(s.Timestamp, s.Accel.X, s.Accel.Y, s.Accel.Z)
	}
	if err := writeFile(filepath.Join(dir, IMUFile), imuHeader, rows); err != nil {
		return err
	}

	rows = make([][]string, len(rec.Scans))
	for i, s := range rec.Scans {
		rows[i] = s.Row()
	}
	return writeFile(filepath.Join(dir, ScansFile), scansHeader, rows)
}

func (r *Record) appendGroundTruth(row []string) error {
	v, err := parseFloats(row, len(groundTruthHeader))
	if err != nil {
		return err
	}
	r.GroundTruth.Timestamps = append(r.GroundTruth.Timestamps, v[0])
	r.GroundTruth.Positions = append(r.GroundTruth.Positions, r3.Vec{X: v[1], Y: v[2], Z: v[3]})
	r.GroundTruth.Orientations = append(r.GroundTruth.Orientations, inertial.Orientation{Roll: v[4], Pitch: v[5], Yaw: v[6]})
	return nil
}

func parseIMU(row []string) (inertial.Sample, error) {
	v, err := parseFloats(row, len(imuHeader))
	if err != nil {
		return inertial.Sample{}, err
	}
	return inertial.Sample{Timestamp: v[0], Accel: r3.Vec{X: v[1], Y: v[2], Z: v[3]}}, nil
}

// readFile calls fn for every row after the header. Errors name the file and row.
func readFile(path string, optional bool, fn func(row []string) error) (err error) {
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer closeWithError(f, &err)

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	for line := 1; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if line == 1 && isHeader(row) {
			continue
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
	}
}

func writeFile(path string, header []string, rows [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer closeWithError(f, &err)

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "timestamp")
}

func parseFloats(row []string, n int) ([]float64, error) {
	if len(row) != n {
		return nil, fmt.Errorf("row has %d fields, want %d", len(row), n)
	}
	v := make([]float64, n)
	for i, f := range row {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("field %d: %w: %s", i, ErrNotFinite, f)
		}
		v[i] = x
	}
	return v, nil
}

func formatFloats(v ...float64) []string {
	row := make([]string, len(v))
	for i, x := range v {
		row[i] = strconv.FormatFloat(x, 'f', -1, 64)
	}
	return row
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if closeErr := cl.Close(); closeErr != nil && *err == nil {
		*err = closeErr
	}
}
