package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/YusufHosny/r-d/internal/session"
	"gonum.org/v1/gonum/mat"
)

// LabelColumns is the width of the label matrix: x, y, z.
const LabelColumns = 3

var ErrEmptySet = errors.New("set has no rows")

// Set is the aligned feature and label matrices of one or more sessions. A set
// without rows has nil matrices.
type Set struct {
	Session  string
	Features *mat.Dense
	Labels   *mat.Dense
}

// Len returns the number of rows.
func (s Set) Len() int {
	if s.Features == nil {
		return 0
	}
	r, _ := s.Features.Dims()
	return r
}

// Regressor predicts positions from feature vectors. Both matrices hold one
// sample per row.
type Regressor interface {
	Fit(features, labels mat.Matrix) error
	Predict(features mat.Matrix) (*mat.Dense, error)
}

// SessionReader reads stored sessions.
type SessionReader interface {
	// Sessions lists the sessions of a named dataset in recording order.
	Sessions(ctx context.Context, dataset string) ([]session.Info, error)
	// LoadRecord loads a session with all of its samples.
	LoadRecord(ctx context.Context, id int64) (*session.Record, error)
}

// LoadDataset loads every session of a named dataset in order.
func LoadDataset(ctx context.Context, r SessionReader, name string) ([]*session.Record, error) {
	infos, err := r.Sessions(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list sessions of '%s': %w", name, err)
	}

	records := make([]*session.Record, 0, len(infos))
	for _, info := range infos {
		rec, err := r.LoadRecord(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("load session '%s': %w", info.Name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Concat stacks sets in order. Empty sets are skipped.
func Concat(name string, sets ...Set) (Set, error) {
	var rows, cols int
	for _, s := range sets {
		if s.Len() == 0 {
			continue
		}
		_, c := s.Features.Dims()
		if rows > 0 && c != cols {
			return Set{}, fmt.Errorf("set '%s' has %d features, want %d", s.Session, c, cols)
		}
		cols = c
		rows += s.Len()
	}
	if rows == 0 {
		return Set{Session: name}, nil
	}

	out := Set{
		Session:  name,
		Features: mat.NewDense(rows, cols, nil),
		Labels:   mat.NewDense(rows, LabelColumns, nil),
	}

	i := 0
	for _, s := range sets {
		for j := range s.Len() {
			out.Features.SetRow(i, s.Features.RawRowView(j))
			out.Labels.SetRow(i, s.Labels.RawRowView(j))
			i++
		}
	}
	return out, nil
}

// Rows returns a new set holding the given rows of s in order.
func (s Set) Rows(name string, rows []int) Set {
	if len(rows) == 0 {
		return Set{Session: name}
	}

	_, cols := s.Features.Dims()
	out := Set{
		Session:  name,
		Features: mat.NewDense(len(rows), cols, nil),
		Labels:   mat.NewDense(len(rows), LabelColumns, nil),
	}
	for i, r := range rows {
		out.Features.SetRow(i, s.Features.RawRowView(r))
		out.Labels.SetRow(i, s.Labels.RawRowView(r))
	}
	return out
}
