package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/session"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoData indicates either that no data exists for the given parameters,
// or that all available data has been read from a reader.
var ErrNoData = fmt.Errorf("no data available")

// ScanReader provides an iterator-based interface for reading the scans of a
// session with optional time filtering.
type ScanReader interface {
	// Session returns metadata about the session this reader is accessing.
	Session() *session.Info

	// Next advances the iterator and returns true if there is another scan
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current scan in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *fingerprint.Scan

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish between
	// end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	// After Close is called, the reader should not be used.
	Close() error
}

// ReaderOption configures a ScanReader with specific filtering criteria.
type ReaderOption func(*SqliteScanReader)

// WithStartTime excludes scans before ts.
func WithStartTime(ts float64) ReaderOption {
	return func(r *SqliteScanReader) {
		r.startTime = &ts
	}
}

// WithEndTime excludes scans after ts.
func WithEndTime(ts float64) ReaderOption {
	return func(r *SqliteScanReader) {
		r.endTime = &ts
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(start, end float64) ReaderOption {
	return func(r *SqliteScanReader) {
		r.startTime = &start
		r.endTime = &end
	}
}

// newSqliteScanReader creates a new ScanReader reading from a database,
// applying optional filters.
func newSqliteScanReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteScanReader, error) {
	sr := &SqliteScanReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(sr)
	}
	if err := sr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return sr, nil
}

// SqliteScanReader implements ScanReader for SQLite database backend. Scans are
// stored one row per observation; the reader groups rows back into scans.
type SqliteScanReader struct {
	db *sql.DB

	sessionID int64
	session   *session.Info

	startTime *float64 // Optional start of time range filter
	endTime   *float64 // Optional end of time range filter

	current       *fingerprint.Scan
	currentScanID int64
	nextScan      *fingerprint.Scan // First row of the next scan
	nextScanID    int64
	rows          *sql.Rows
	err           error
}

func (sr *SqliteScanReader) init(ctx context.Context) error {
	if sr.db == nil {
		return errors.New("database connection required")
	}
	if sr.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: sr.loadSession},
		{msg: "initializing filters", fn: sr.initFilters},
		{msg: "initializing query", fn: sr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (sr *SqliteScanReader) loadSession(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	info, err := scanSessionInfo(stmt.QueryRowContext(ctx, sr.sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %d: %w", sr.sessionID, ErrNoData)
	}
	if err != nil {
		return fmt.Errorf("querying session: %w", err)
	}

	sr.session = info
	return
}

func (sr *SqliteScanReader) initFilters(ctx context.Context) (err error) {
	if sr.startTime != nil && sr.endTime != nil {
		if *sr.startTime > *sr.endTime {
			return fmt.Errorf("start time %f is after end time %f", *sr.startTime, *sr.endTime)
		}
		return nil
	}

	stmt, err := sr.db.PrepareContext(ctx, selectScanBoundsSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var startTime, endTime sql.NullFloat64
	if err = stmt.QueryRowContext(ctx, sr.sessionID).Scan(&startTime, &endTime); err != nil {
		return fmt.Errorf("scanning filters data: %w", err)
	}

	// a session without scans matches nothing below
	if sr.startTime == nil {
		sr.startTime = &startTime.Float64
	}
	if sr.endTime == nil {
		sr.endTime = &endTime.Float64
	}

	return nil
}

func (sr *SqliteScanReader) initQuery(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectScansSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if sr.rows, err = stmt.QueryContext(ctx, sr.sessionID, *sr.startTime, *sr.endTime); err != nil {
		return err
	}
	return nil
}

func (sr *SqliteScanReader) scanRow() (*scanRowData, error) {
	var row scanRowData
	if err := sr.rows.Scan(&row.ScanID, &row.Timestamp, &row.SourceID, &row.Strength); err != nil {
		return nil, fmt.Errorf("scanning observation: %w", err)
	}
	return &row, nil
}

// appendRow adds the observation of row, if any, to scan. Scans without
// observations produce a single row with NULL source.
func appendRow(scan *fingerprint.Scan, row *scanRowData) {
	if row.SourceID.Valid {
		scan.Observations = append(scan.Observations, fingerprint.Observation{
			SourceID: row.SourceID.String,
			Strength: row.Strength.Float64,
		})
	}
}

func (sr *SqliteScanReader) Session() *session.Info {
	return sr.session
}

func (sr *SqliteScanReader) Next(ctx context.Context) bool {
	if sr.err != nil || sr.rows == nil {
		return false
	}

	sr.current, sr.currentScanID = sr.nextScan, sr.nextScanID
	sr.nextScan = nil

	for {
		select {
		case <-ctx.Done():
			sr.err = ctx.Err()
			return false
		default:
		}

		if !sr.rows.Next() {
			if sr.current != nil {
				sr.err = ErrNoData
				return true
			}
			return false
		}

		var row *scanRowData
		if row, sr.err = sr.scanRow(); sr.err != nil {
			return false
		}

		if sr.current == nil {
			sr.current = &fingerprint.Scan{Timestamp: row.Timestamp}
			sr.currentScanID = row.ScanID
			appendRow(sr.current, row)
			continue
		}

		// a new scan id completes the current scan
		if row.ScanID != sr.currentScanID {
			sr.nextScan = &fingerprint.Scan{Timestamp: row.Timestamp}
			sr.nextScanID = row.ScanID
			appendRow(sr.nextScan, row)
			return true
		}

		appendRow(sr.current, row)
	}
}

func (sr *SqliteScanReader) Current() *fingerprint.Scan {
	return sr.current
}

func (sr *SqliteScanReader) Error() error {
	if sr.err != nil && !errors.Is(sr.err, ErrNoData) {
		return sr.err
	}
	if sr.rows != nil {
		return sr.rows.Err()
	}
	return nil
}

func (sr *SqliteScanReader) Close() error {
	if sr.rows != nil {
		err := sr.rows.Close()
		sr.current = nil
		sr.nextScan = nil
		sr.rows = nil
		return err
	}
	return nil
}
