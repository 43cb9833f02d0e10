package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/YusufHosny/r-d/internal/inertial"
)

// maxBatchRows bounds the rows of a single multi-row INSERT so the bound
// parameters stay under SQLite's variable limit.
const maxBatchRows = 500

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

// batchInsert executes prefix followed by one placeholder group per row, in
// chunks of maxBatchRows. args returns the bound values of row i.
func batchInsert(ctx context.Context, tx *sql.Tx, prefix, placeholder string, rows int, args func(i int) []any) error {
	for start := 0; start < rows; start += maxBatchRows {
		end := min(start+maxBatchRows, rows)

		var sb strings.Builder
		sb.WriteString(prefix)

		values := make([]any, 0, (end-start)*strings.Count(placeholder, "?"))
		for i := start; i < end; i++ {
			if i > start {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
			values = append(values, args(i)...)
		}

		if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return err
		}
	}
	return nil
}

func toGroundTruthData(sessionID int64, seq int, ts float64, x, y, z float64, o *inertial.Orientation) *groundTruthData {
	data := groundTruthData{
		SessionID: sessionID,
		Seq:       seq,
		Timestamp: ts,
		X:         x,
		Y:         y,
		Z:         z,
	}
	if o != nil {
		data.Roll = sql.NullFloat64{Float64: o.Roll, Valid: true}
		data.Pitch = sql.NullFloat64{Float64: o.Pitch, Valid: true}
		data.Yaw = sql.NullFloat64{Float64: o.Yaw, Valid: true}
	}
	return &data
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
