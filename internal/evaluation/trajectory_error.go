package evaluation

import (
	"errors"
	"fmt"
	"math"

	"github.com/YusufHosny/r-d/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultWindowSize is the RTE window used by the dead reckoning evaluation.
const DefaultWindowSize = 10

var (
	ErrLengthMismatch = errors.New("trajectories differ in length")
	ErrWindowSize     = errors.New("window size must be at least 2")
	ErrNoOverlap      = errors.New("trajectories do not overlap in time")
)

// InsufficientWindowError is returned when a trajectory is shorter than one RTE window.
type InsufficientWindowError struct {
	Samples    int
	WindowSize int
}

func (e *InsufficientWindowError) Error() string {
	return fmt.Sprintf("%d aligned samples do not fill a window of %d", e.Samples, e.WindowSize)
}

// Result holds the absolute and relative trajectory errors of an estimate.
type Result struct {
	// ATE is the mean Euclidean distance between aligned positions.
	ATE float64 `json:"ate"`
	// ATERMSE is the root mean square of the same distances.
	ATERMSE float64 `json:"ateRMSE"`
	// RTE is the mean displacement error over full windows.
	RTE        float64 `json:"rte"`
	Samples    int     `json:"samples"`
	Windows    int     `json:"windows"`
	WindowSize int     `json:"windowSize"`
}

// ATERTE compares two aligned trajectories of equal length.
//
// RTE splits the samples into len/windowSize consecutive windows; within each
// window the end minus start displacement of both trajectories is compared.
// A trailing partial window is discarded.
func ATERTE(est, gt trajectory.Trajectory, windowSize int) (Result, error) {
	if len(est) != len(gt) {
		return Result{}, fmt.Errorf("%w: %d estimated, %d ground truth", ErrLengthMismatch, len(est), len(gt))
	}
	if windowSize < 2 {
		return Result{}, fmt.Errorf("%w: got %d", ErrWindowSize, windowSize)
	}
	if len(est) < windowSize {
		return Result{}, &InsufficientWindowError{Samples: len(est), WindowSize: windowSize}
	}

	var sum, sumSq float64
	for i := range est {
		d := r3.Norm(r3.Sub(est[i].Position, gt[i].Position))
		sum += d
		sumSq += d * d
	}
	n := float64(len(est))

	windows := len(est) / windowSize
	var rte float64
	for w := range windows {
		start, end := w*windowSize, (w+1)*windowSize-1
		de := r3.Sub(est[end].Position, est[start].Position)
		dg := r3.Sub(gt[end].Position, gt[start].Position)
		rte += r3.Norm(r3.Sub(de, dg))
	}

	return Result{
		ATE:        sum / n,
		ATERMSE:    math.Sqrt(sumSq / n),
		RTE:        rte / float64(windows),
		Samples:    len(est),
		Windows:    windows,
		WindowSize: windowSize,
	}, nil
}

// Align restricts the estimate to the time span of the ground truth and
// interpolates the ground truth at every remaining estimate timestamp. The
// returned trajectories share timestamps and length.
func Align(est, gt trajectory.Trajectory, interp *trajectory.Interpolator) (trajectory.Trajectory, trajectory.Trajectory, error) {
	start, end, ok := gt.Span()
	if !ok {
		return nil, nil, trajectory.ErrNoGroundTruth
	}

	gtTimestamps, gtPositions := gt.Timestamps(), gt.Positions()

	var alignedEst, alignedGT trajectory.Trajectory
	for _, s := range est {
		if s.Timestamp < start || s.Timestamp > end {
			continue
		}
		p, err := interp.PositionAt(s.Timestamp, gtTimestamps, gtPositions)
		if err != nil {
			return nil, nil, fmt.Errorf("align at %.6f: %w", s.Timestamp, err)
		}
		alignedEst = append(alignedEst, s)
		alignedGT = append(alignedGT, trajectory.Sample{Timestamp: s.Timestamp, Position: p})
	}

	if len(alignedEst) == 0 {
		return nil, nil, ErrNoOverlap
	}
	return alignedEst, alignedGT, nil
}
