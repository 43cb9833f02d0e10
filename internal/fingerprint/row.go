package fingerprint

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrNotFinite = errors.New("value is not finite")

// parseFinite parses a float field, rejecting NaN and infinities.
func parseFinite(field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s", ErrNotFinite, field)
	}
	return v, nil
}

// ParseRow decodes a scanner row: timestamp, count, then count pairs of
// source id and strength. Fields after the last pair must be empty; the
// scanner pads rows to a fixed width.
func ParseRow(fields []string) (Scan, error) {
	if len(fields) < 2 {
		return Scan{}, fmt.Errorf("row has %d fields, want at least 2", len(fields))
	}

	ts, err := parseFinite(fields[0])
	if err != nil {
		return Scan{}, fmt.Errorf("timestamp: %w", err)
	}

	count, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Scan{}, fmt.Errorf("count: %w", err)
	}
	if count < 0 || 2+2*count > len(fields) {
		return Scan{}, fmt.Errorf("count %d does not fit %d fields", count, len(fields))
	}

	for i, f := range fields[2+2*count:] {
		if strings.TrimSpace(f) != "" {
			return Scan{}, fmt.Errorf("field %d after %d pairs is not empty", 2+2*count+i, count)
		}
	}

	scan := Scan{
		Timestamp:    ts,
		Observations: make([]Observation, count),
	}
	for i := range count {
		id := strings.TrimSpace(fields[2+2*i])
		if id == "" {
			return Scan{}, fmt.Errorf("pair %d: %w", i, ErrEmptySourceID)
		}
		strength, err := parseFinite(fields[3+2*i])
		if err != nil {
			return Scan{}, fmt.Errorf("pair %d strength: %w", i, err)
		}
		scan.Observations[i] = Observation{SourceID: id, Strength: strength}
	}

	return scan, nil
}

// Row encodes the scan in the scanner row format.
func (s Scan) Row() []string {
	row := make([]string, 0, 2+2*len(s.Observations))
	row = append(row,
		strconv.FormatFloat(s.Timestamp, 'f', -1, 64),
		strconv.Itoa(len(s.Observations)),
	)
	for _, o := range s.Observations {
		row = append(row, o.SourceID, strconv.FormatFloat(o.Strength, 'f', -1, 64))
	}
	return row
}
