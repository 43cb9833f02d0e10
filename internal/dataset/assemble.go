package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/session"
	"github.com/YusufHosny/r-d/internal/trajectory"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// WithDefaultValue sets the feature value of sources absent from a scan
func WithDefaultValue(v float64) func(*Assembler) {
	return func(a *Assembler) {
		a.defaultValue = v
	}
}

// WithInterpolator sets the ground truth interpolator used for labels
func WithInterpolator(in *trajectory.Interpolator) func(*Assembler) {
	return func(a *Assembler) {
		a.interp = in
	}
}

// WithConcurrency bounds the number of sessions assembled at once
func WithConcurrency(n int) func(*Assembler) {
	return func(a *Assembler) {
		a.concurrency = n
	}
}

// WithLogger sets the logger of the assembler
func WithLogger(logger *slog.Logger) func(*Assembler) {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// Assembler turns session records into aligned feature and label matrices.
// The dictionary is shared read-only by every session.
type Assembler struct {
	builder      *fingerprint.Builder
	interp       *trajectory.Interpolator
	defaultValue float64
	concurrency  int
	logger       *slog.Logger
}

// NewAssembler creates a new Assembler
func NewAssembler(dict *fingerprint.Dictionary, options ...func(*Assembler)) *Assembler {
	a := Assembler{
		interp:       trajectory.NewInterpolator(),
		defaultValue: fingerprint.DefaultStrength,
		concurrency:  runtime.GOMAXPROCS(0),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&a)
	}
	a.builder = fingerprint.NewBuilder(dict, fingerprint.WithDefaultValue(a.defaultValue))
	return &a
}

// AssembleSession builds one feature row per scan, labelled with the ground
// truth position interpolated at the scan timestamp.
func (a *Assembler) AssembleSession(rec *session.Record) (Set, error) {
	gt := rec.GroundTruth
	if len(gt.Timestamps) < 2 {
		return Set{}, fmt.Errorf("session '%s': %w", rec.Name, session.ErrTooFewGroundTruth)
	}
	if len(gt.Timestamps) != len(gt.Positions) {
		return Set{}, fmt.Errorf("session '%s': %w", rec.Name, trajectory.ErrLengthMismatch)
	}

	if len(rec.Scans) == 0 {
		return Set{Session: rec.Name}, nil
	}

	set := Set{
		Session:  rec.Name,
		Features: mat.NewDense(len(rec.Scans), a.builder.Width(), nil),
		Labels:   mat.NewDense(len(rec.Scans), LabelColumns, nil),
	}

	for i, scan := range rec.Scans {
		if err := a.builder.BuildInto(set.Features.RawRowView(i), scan); err != nil {
			var unknown *fingerprint.UnknownSourceError
			if errors.As(err, &unknown) {
				unknown.Session = rec.Name
				unknown.ScanIndex = i
			}
			return Set{}, err
		}

		p, err := a.interp.PositionAt(scan.Timestamp, gt.Timestamps, gt.Positions)
		if err != nil {
			return Set{}, fmt.Errorf("session '%s': scan %d: %w", rec.Name, i, err)
		}
		set.Labels.SetRow(i, []float64{p.X, p.Y, p.Z})
	}

	return set, nil
}

// Assemble assembles every session in parallel. The result keeps session order.
func (a *Assembler) Assemble(ctx context.Context, records []*session.Record) ([]Set, error) {
	sets := make([]Set, len(records))

	g, ctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}

	for i, rec := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			set, err := a.AssembleSession(rec)
			if err != nil {
				return err
			}
			sets[i] = set

			a.logger.Debug("session assembled",
				slog.String("session", rec.Name),
				slog.Int("rows", set.Len()),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	return sets, nil
}

// AssembleSession assembles one session with default options.
func AssembleSession(rec *session.Record, dict *fingerprint.Dictionary, options ...func(*Assembler)) (Set, error) {
	return NewAssembler(dict, options...).AssembleSession(rec)
}

// Assemble assembles sessions in parallel with the given options.
func Assemble(ctx context.Context, records []*session.Record, dict *fingerprint.Dictionary, options ...func(*Assembler)) ([]Set, error) {
	return NewAssembler(dict, options...).Assemble(ctx, records)
}
