package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/YusufHosny/r-d/internal/dataset"
	"github.com/YusufHosny/r-d/internal/evaluation"
	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/knn"
	"github.com/YusufHosny/r-d/internal/session"
	"github.com/YusufHosny/r-d/internal/storage"
	"github.com/YusufHosny/r-d/internal/trajectory"
	"github.com/dustin/go-humanize"
)

// Report is the persisted result of one fingerprint evaluation.
type Report struct {
	Sources      int                        `json:"sources"`
	Neighbours   int                        `json:"neighbours"`
	TestFraction float64                    `json:"testFraction"`
	Seed         uint64                     `json:"seed"`
	Train        int                        `json:"train"`
	Test         evaluation.DistanceReport  `json:"test"`
	Unseen       *evaluation.DistanceReport `json:"unseen,omitempty"`
}

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	dbPath, err := config.Storage.DBPath()
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	store := storage.NewSqliteStore(dbPath)
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	logger = logger.With(slog.String("dataset", config.Dataset.Name))

	report, err := evaluate(ctx, config, store, logger)
	if err != nil {
		return err
	}

	attrs := []any{
		slog.Int("sources", report.Sources),
		slog.String("train", humanize.Comma(int64(report.Train))),
		distanceGroup("test", report.Test),
	}
	if report.Unseen != nil {
		attrs = append(attrs, distanceGroup("unseen", *report.Unseen))
	}
	logger.Info("fingerprint evaluation", attrs...)

	runID, err := store.StoreEvaluation(ctx, storage.KindFingerprint, config.Dataset.Name, nil, report)
	if err != nil {
		return fmt.Errorf("storing evaluation: %w", err)
	}
	logger.Debug("evaluation stored", slog.String("run", runID.String()))

	return nil
}

func evaluate(ctx context.Context, config *Config, store *storage.SqliteStore, logger *slog.Logger) (*Report, error) {
	records, err := dataset.LoadDataset(ctx, store, config.Dataset.Name)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset '%s' has no sessions", config.Dataset.Name)
	}

	dict, err := dictionary(ctx, store, records, config.Dataset.RebuildDictionary, logger)
	if err != nil {
		return nil, err
	}

	policy, err := trajectory.ParsePolicy(config.Dataset.OutOfRange)
	if err != nil {
		return nil, err
	}

	options := []func(*dataset.Assembler){
		dataset.WithDefaultValue(config.Dataset.DefaultStrength),
		dataset.WithInterpolator(trajectory.NewInterpolator(trajectory.WithPolicy(policy))),
		dataset.WithLogger(logger),
	}
	if config.Dataset.Concurrency > 0 {
		options = append(options, dataset.WithConcurrency(config.Dataset.Concurrency))
	}

	sets, err := dataset.Assemble(ctx, records, dict, options...)
	if err != nil {
		return nil, err
	}

	splits, err := dataset.Split(sets, config.Dataset.TestFraction, config.Dataset.Seed)
	if err != nil {
		return nil, err
	}

	model, err := knn.New(config.Model.Neighbours)
	if err != nil {
		return nil, err
	}
	if err = model.Fit(splits.Train.Features, splits.Train.Labels); err != nil {
		return nil, fmt.Errorf("fitting model: %w", err)
	}

	report := Report{
		Sources:      dict.Len(),
		Neighbours:   config.Model.Neighbours,
		TestFraction: config.Dataset.TestFraction,
		Seed:         config.Dataset.Seed,
		Train:        splits.Train.Len(),
	}

	if report.Test, err = score(model, splits.Test); err != nil {
		return nil, fmt.Errorf("scoring test set: %w", err)
	}

	if splits.Unseen.Len() == 0 {
		logger.Warn("unseen session has no scans", slog.String("session", splits.Unseen.Session))
		return &report, nil
	}
	unseen, err := score(model, splits.Unseen)
	if err != nil {
		return nil, fmt.Errorf("scoring unseen set: %w", err)
	}
	report.Unseen = &unseen

	return &report, nil
}

// dictionary returns the stored source dictionary, building and storing it
// from records when there is none or rebuild is set.
func dictionary(ctx context.Context, store *storage.SqliteStore, records []*session.Record, rebuild bool, logger *slog.Logger) (*fingerprint.Dictionary, error) {
	if !rebuild {
		dict, err := store.LoadDictionary(ctx)
		if err == nil {
			logger.Debug("using stored dictionary", slog.Int("sources", dict.Len()))
			return dict, nil
		}
		if !errors.Is(err, storage.ErrNoData) {
			return nil, fmt.Errorf("loading dictionary: %w", err)
		}
	}

	scans := make([][]fingerprint.Scan, len(records))
	for i, rec := range records {
		scans[i] = rec.Scans
	}
	dict := fingerprint.DictionaryFromScans(scans...)
	if dict.Len() == 0 {
		return nil, errors.New("no sources observed in dataset")
	}

	if err := store.StoreDictionary(ctx, dict); err != nil {
		return nil, fmt.Errorf("storing dictionary: %w", err)
	}
	logger.Info("dictionary built", slog.Int("sources", dict.Len()))
	return dict, nil
}

func score(model dataset.Regressor, set dataset.Set) (evaluation.DistanceReport, error) {
	pred, err := model.Predict(set.Features)
	if err != nil {
		return evaluation.DistanceReport{}, err
	}
	return evaluation.CompareMatrices(pred, set.Labels)
}

func distanceGroup(name string, r evaluation.DistanceReport) slog.Attr {
	return slog.Group(name,
		slog.Int("samples", r.Samples),
		slog.Float64("ade", r.ADE),
		slog.Float64("mde", r.MDE),
		slog.Float64("msde", r.MSDE),
		slog.Float64("r2", r.R2),
	)
}
