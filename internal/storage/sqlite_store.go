package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/inertial"
	"github.com/YusufHosny/r-d/internal/session"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a new store backed by the Sqlite database at dbPath.
// Connections are opened on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

// getReadDB opens the read only connection. The write connection is opened
// first so that a new database file has its schema before it is read.
func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		if _, err := s.getWriteDB(); err != nil {
			s.readDBErr = err
			return
		}

		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// withTx runs fn in a write transaction, committing only when fn succeeds.
func (s *SqliteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) CreateSession(ctx context.Context, dataset, name, device string) (sessionID int64, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) (txErr error) {
		sessionID, txErr = insertSession(ctx, tx, dataset, name, device)
		return
	})
	if err != nil {
		return 0, err
	}
	return
}

func insertSession(ctx context.Context, tx *sql.Tx, dataset, name, device string) (int64, error) {
	var deviceData sql.NullString
	if device != "" {
		deviceData = sql.NullString{String: device, Valid: true}
	}

	result, err := tx.ExecContext(ctx, insertSessionSQL, dataset, name, deviceData, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	sessionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting session ID: %w", err)
	}
	return sessionID, nil
}

func (s *SqliteStore) DeleteSession(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range deleteSessionSQL {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("deleting session: %w", err)
			}
		}
		return nil
	})
}

func scanSessionInfo(row interface{ Scan(...any) error }) (*session.Info, error) {
	var info session.Info
	var device sql.NullString
	if err := row.Scan(&info.ID, &info.Dataset, &info.Name, &device, &info.CreatedAt); err != nil {
		return nil, err
	}
	info.Device = device.String
	return &info, nil
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (info *session.Info, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	info, err = scanSessionInfo(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("session %d: %w", id, ErrNoData)
		return
	}
	if err != nil {
		err = fmt.Errorf("scanning session: %w", err)
	}
	return
}

func (s *SqliteStore) SessionByName(ctx context.Context, dataset, name string) (info *session.Info, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionByNameSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	info, err = scanSessionInfo(stmt.QueryRowContext(ctx, dataset, name))
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("session '%s/%s': %w", dataset, name, ErrNoData)
		return
	}
	if err != nil {
		err = fmt.Errorf("scanning session: %w", err)
	}
	return
}

func (s *SqliteStore) Sessions(ctx context.Context, dataset string) (sessions []session.Info, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL, dataset)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var info *session.Info
		if info, err = scanSessionInfo(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, *info)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreIMUSamples(ctx context.Context, sessionID int64, samples []inertial.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertIMUSamples(ctx, tx, sessionID, samples)
	})
}

func insertIMUSamples(ctx context.Context, tx *sql.Tx, sessionID int64, samples []inertial.Sample) error {
	err := batchInsert(ctx, tx, insertIMUSampleSQL, "(?, ?, ?, ?, ?, ?)", len(samples), func(i int) []any {
		a := samples[i].Accel
		return []any{sessionID, i, samples[i].Timestamp, a.X, a.Y, a.Z}
	})
	if err != nil {
		return fmt.Errorf("batch inserting imu samples: %w", err)
	}
	return nil
}

func (s *SqliteStore) StoreScans(ctx context.Context, sessionID int64, scans []fingerprint.Scan) error {
	if len(scans) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertScans(ctx, tx, sessionID, scans)
	})
}

func insertScans(ctx context.Context, tx *sql.Tx, sessionID int64, scans []fingerprint.Scan) (err error) {
	stmt, err := tx.PrepareContext(ctx, insertScanSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	type observationRow struct {
		scanID   int64
		position int
		obs      fingerprint.Observation
	}
	var observations []observationRow

	for i, scan := range scans {
		result, err := stmt.ExecContext(ctx, sessionID, i, scan.Timestamp, len(scan.Observations))
		if err != nil {
			return fmt.Errorf("inserting scan %d: %w", i, err)
		}
		scanID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting scan ID: %w", err)
		}
		for j, o := range scan.Observations {
			observations = append(observations, observationRow{scanID: scanID, position: j, obs: o})
		}
	}

	err = batchInsert(ctx, tx, insertObservationSQL, "(?, ?, ?, ?)", len(observations), func(i int) []any {
		o := observations[i]
		return []any{o.scanID, o.position, o.obs.SourceID, o.obs.Strength}
	})
	if err != nil {
		return fmt.Errorf("batch inserting observations: %w", err)
	}
	return nil
}

func (s *SqliteStore) StoreGroundTruth(ctx context.Context, sessionID int64, gt session.GroundTruth) error {
	if err := gt.Validate(); err != nil {
		return err
	}
	if len(gt.Timestamps) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertGroundTruth(ctx, tx, sessionID, gt)
	})
}

func insertGroundTruth(ctx context.Context, tx *sql.Tx, sessionID int64, gt session.GroundTruth) error {
	err := batchInsert(ctx, tx, insertGroundTruthSQL, "(?, ?, ?, ?, ?, ?, ?, ?, ?)", len(gt.Timestamps), func(i int) []any {
		var o *inertial.Orientation
		if len(gt.Orientations) > 0 {
			o = &gt.Orientations[i]
		}
		p := gt.Positions[i]
		data := toGroundTruthData(sessionID, i, gt.Timestamps[i], p.X, p.Y, p.Z, o)
		return []any{
			data.SessionID,
			data.Seq,
			data.Timestamp,
			data.X,
			data.Y,
			data.Z,
			data.Roll,
			data.Pitch,
			data.Yaw,
		}
	})
	if err != nil {
		return fmt.Errorf("batch inserting ground truth: %w", err)
	}
	return nil
}

// StoreRecord creates a session in dataset and stores all of the record's
// samples in one transaction. On failure nothing of the session is kept.
func (s *SqliteStore) StoreRecord(ctx context.Context, dataset string, rec *session.Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if id, err = insertSession(ctx, tx, dataset, rec.Name, rec.Device); err != nil {
			return err
		}

		steps := []struct {
			msg string
			fn  func() error
		}{
			{msg: "storing ground truth", fn: func() error { return insertGroundTruth(ctx, tx, id, rec.GroundTruth) }},
			{msg: "storing imu samples", fn: func() error { return insertIMUSamples(ctx, tx, id, rec.IMU) }},
			{msg: "storing scans", fn: func() error { return insertScans(ctx, tx, id, rec.Scans) }},
		}
		for _, step := range steps {
			if err := step.fn(); err != nil {
				return fmt.Errorf("%s: %w", step.msg, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SqliteStore) loadIMUSamples(ctx context.Context, db *sql.DB, sessionID int64) (samples []inertial.Sample, err error) {
	rows, err := db.QueryContext(ctx, selectIMUSamplesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying imu samples: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var smp inertial.Sample
		if err = rows.Scan(&smp.Timestamp, &smp.Accel.X, &smp.Accel.Y, &smp.Accel.Z); err != nil {
			return nil, fmt.Errorf("scanning imu sample: %w", err)
		}
		samples = append(samples, smp)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) loadGroundTruth(ctx context.Context, db *sql.DB, sessionID int64) (gt session.GroundTruth, err error) {
	rows, err := db.QueryContext(ctx, selectGroundTruthSQL, sessionID)
	if err != nil {
		return gt, fmt.Errorf("querying ground truth: %w", err)
	}
	defer closeWithError(rows, &err)

	complete := true
	for rows.Next() {
		var data groundTruthData
		if err = rows.Scan(&data.Timestamp, &data.X, &data.Y, &data.Z, &data.Roll, &data.Pitch, &data.Yaw); err != nil {
			return gt, fmt.Errorf("scanning ground truth: %w", err)
		}
		gt.Timestamps = append(gt.Timestamps, data.Timestamp)
		gt.Positions = append(gt.Positions, r3.Vec{X: data.X, Y: data.Y, Z: data.Z})

		complete = complete && data.Roll.Valid && data.Pitch.Valid && data.Yaw.Valid
		gt.Orientations = append(gt.Orientations, inertial.Orientation{
			Roll:  data.Roll.Float64,
			Pitch: data.Pitch.Float64,
			Yaw:   data.Yaw.Float64,
		})
	}
	if err = rows.Err(); err != nil {
		return gt, err
	}

	// orientations are all or nothing
	if !complete {
		gt.Orientations = nil
	}
	return gt, nil
}

// LoadRecord loads a session with its IMU samples, scans and ground truth.
func (s *SqliteStore) LoadRecord(ctx context.Context, id int64) (*session.Record, error) {
	info, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}

	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rec := session.Record{Info: *info}

	if rec.IMU, err = s.loadIMUSamples(ctx, db, id); err != nil {
		return nil, fmt.Errorf("session '%s': %w", info.Name, err)
	}
	if rec.GroundTruth, err = s.loadGroundTruth(ctx, db, id); err != nil {
		return nil, fmt.Errorf("session '%s': %w", info.Name, err)
	}
	if rec.Scans, err = s.loadScans(ctx, id); err != nil {
		return nil, fmt.Errorf("session '%s': %w", info.Name, err)
	}

	return &rec, nil
}

func (s *SqliteStore) loadScans(ctx context.Context, id int64) (scans []fingerprint.Scan, err error) {
	reader, err := s.ReadScans(ctx, id)
	if err != nil {
		return nil, err
	}
	defer closeWithError(reader, &err)

	for reader.Next(ctx) {
		scans = append(scans, *reader.Current())
	}
	return scans, reader.Error()
}

// LoadRecords loads every session of a dataset in order.
func (s *SqliteStore) LoadRecords(ctx context.Context, dataset string) ([]*session.Record, error) {
	infos, err := s.Sessions(ctx, dataset)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("dataset '%s': %w", dataset, ErrNoData)
	}

	records := make([]*session.Record, len(infos))
	for i, info := range infos {
		if records[i], err = s.LoadRecord(ctx, info.ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// ReadScans creates a new ScanReader over the scans of a session in recording
// order. Options restrict the scan time range.
//
// The returned reader must be closed after use to release database resources.
func (s *SqliteStore) ReadScans(ctx context.Context, sessionID int64, opts ...ReaderOption) (*SqliteScanReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteScanReader(ctx, db, sessionID, opts...)
}

// StoreDictionary replaces the persisted source dictionary.
func (s *SqliteStore) StoreDictionary(ctx context.Context, dict *fingerprint.Dictionary) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if _, err = tx.ExecContext(ctx, deleteSourcesSQL); err != nil {
		return fmt.Errorf("clearing sources: %w", err)
	}

	ids := dict.IDs()
	err = batchInsert(ctx, tx, insertSourceSQL, "(?, ?)", len(ids), func(i int) []any {
		return []any{i, ids[i]}
	})
	if err != nil {
		return fmt.Errorf("batch inserting sources: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadDictionary returns the persisted source dictionary, or ErrNoData when none is stored.
func (s *SqliteStore) LoadDictionary(ctx context.Context) (dict *fingerprint.Dictionary, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSourcesSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer closeWithError(rows, &err)

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("dictionary: %w", ErrNoData)
	}

	return fingerprint.NewDictionary(ids)
}

// StoreEvaluation persists metrics, which must be JSON-serializable, and
// returns the new run ID.
func (s *SqliteStore) StoreEvaluation(ctx context.Context, kind, dataset string, sessionID *int64, metrics any) (runID uuid.UUID, err error) {
	p, err := json.Marshal(metrics)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling metrics: %w", err)
	}

	db, err := s.getWriteDB()
	if err != nil {
		return uuid.Nil, fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertEvaluationSQL)
	if err != nil {
		return uuid.Nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	runID = uuid.New()
	if _, err = stmt.ExecContext(ctx, runID.String(), time.Now().UTC(), kind, dataset, toNullInt64(sessionID), string(p)); err != nil {
		return uuid.Nil, fmt.Errorf("inserting evaluation run: %w", err)
	}
	return runID, nil
}

// EvaluationRuns lists the stored runs of a kind, oldest first.
func (s *SqliteStore) EvaluationRuns(ctx context.Context, kind string) (runs []EvaluationRun, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectEvaluationsSQL, kind)
	if err != nil {
		return nil, fmt.Errorf("querying evaluation runs: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var run EvaluationRun
		var id, metrics string
		var sessionID sql.NullInt64
		if err = rows.Scan(&id, &run.CreatedAt, &run.Kind, &run.Dataset, &sessionID, &metrics); err != nil {
			return nil, fmt.Errorf("scanning evaluation run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing run ID: %w", err)
		}
		if sessionID.Valid {
			run.SessionID = &sessionID.Int64
		}
		run.Metrics = json.RawMessage(metrics)
		runs = append(runs, run)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
