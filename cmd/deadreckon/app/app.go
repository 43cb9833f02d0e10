package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/YusufHosny/r-d/internal/evaluation"
	"github.com/YusufHosny/r-d/internal/inertial"
	"github.com/YusufHosny/r-d/internal/session"
	"github.com/YusufHosny/r-d/internal/storage"
	"github.com/YusufHosny/r-d/internal/trajectory"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// sessionResult is the outcome of one session. A nil result means the session
// was skipped.
type sessionResult struct {
	info   session.Info
	result *evaluation.Result
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

	infos, err := selectSessions(ctx, store, &config.Dataset)
	if err != nil {
		return err
	}

	results, err := evaluateSessions(ctx, config, store, infos, logger)
	if err != nil {
		return err
	}

	// sqlite allows a single writer, runs are stored after all sessions finish
	var evaluated int
	var sumATE float64
	for _, r := range results {
		if r.result == nil {
			continue
		}
		id := r.info.ID
		if _, err = store.StoreEvaluation(ctx, storage.KindDeadReckon, config.Dataset.Name, &id, r.result); err != nil {
			return fmt.Errorf("storing evaluation of '%s': %w", r.info.Name, err)
		}
		evaluated++
		sumATE += r.result.ATE
	}
	if evaluated == 0 {
		return errors.New("no session could be evaluated")
	}

	logger.Info("dead reckoning evaluation",
		slog.Int("sessions", evaluated),
		slog.Int("skipped", len(results)-evaluated),
		slog.Float64("meanATE", sumATE/float64(evaluated)),
	)
	return nil
}

func selectSessions(ctx context.Context, store *storage.SqliteStore, config *DatasetConfig) ([]session.Info, error) {
	infos, err := store.Sessions(ctx, config.Name)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("dataset '%s' has no sessions", config.Name)
	}
	if len(config.Sessions) == 0 {
		return infos, nil
	}

	byName := make(map[string]session.Info, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	selected := make([]session.Info, 0, len(config.Sessions))
	for _, name := range config.Sessions {
		info, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("dataset '%s' has no session '%s'", config.Name, name)
		}
		selected = append(selected, info)
	}
	return selected, nil
}

func evaluateSessions(ctx context.Context, config *Config, store *storage.SqliteStore, infos []session.Info, logger *slog.Logger) ([]sessionResult, error) {
	policy, err := trajectory.ParsePolicy(config.Dataset.OutOfRange)
	if err != nil {
		return nil, err
	}
	interp := trajectory.NewInterpolator(trajectory.WithPolicy(policy))

	options := []func(*inertial.Integrator){inertial.WithGravity(config.Inertial.Gravity)}
	if config.Inertial.StrictTime {
		options = append(options, inertial.WithStrictTime())
	}
	integrator := inertial.NewIntegrator(options...)

	concurrency := config.Inertial.Concurrency
	if concurrency == 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]sessionResult, len(infos))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, info := range infos {
		g.Go(func() error {
			rec, err := store.LoadRecord(ctx, info.ID)
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", info.Name, err)
			}

			log := logger.With(slog.String("session", info.Name))
			results[i].info = info

			res, err := evaluateRecord(rec, integrator, interp, config.Inertial.WindowSize)
			var insufficient *evaluation.InsufficientWindowError
			switch {
			case errors.Is(err, inertial.ErrNoSamples),
				errors.Is(err, session.ErrNoOrientations),
				errors.Is(err, evaluation.ErrNoOverlap),
				errors.As(err, &insufficient):
				log.Warn("session skipped", slog.String("reason", err.Error()))
				return nil
			case err != nil:
				return fmt.Errorf("session '%s': %w", info.Name, err)
			}
			results[i].result = &res

			log.Info("session evaluated",
				slog.String("imu", humanize.Comma(int64(len(rec.IMU)))),
				slog.Group("metrics",
					slog.Float64("ate", res.ATE),
					slog.Float64("ateRMSE", res.ATERMSE),
					slog.Float64("rte", res.RTE),
					slog.Int("windows", res.Windows),
				),
			)
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluateRecord dead reckons the IMU stream of rec with ground truth
// orientations and compares it to the ground truth track over their common
// time span.
func evaluateRecord(rec *session.Record, integrator *inertial.Integrator, interp *trajectory.Interpolator, windowSize int) (evaluation.Result, error) {
	orientations, err := rec.Orientations()
	if err != nil {
		return evaluation.Result{}, fmt.Errorf("holding orientations: %w", err)
	}

	est, err := integrator.DeadReckon(rec.IMU, orientations)
	if err != nil {
		return evaluation.Result{}, fmt.Errorf("dead reckoning: %w", err)
	}

	gt, err := rec.GroundTruth.Trajectory()
	if err != nil {
		return evaluation.Result{}, fmt.Errorf("ground truth: %w", err)
	}

	alignedEst, alignedGT, err := evaluation.Align(est, gt, interp)
	if err != nil {
		return evaluation.Result{}, err
	}
	return evaluation.ATERTE(alignedEst, alignedGT, windowSize)
}
