package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type groundTruthData struct {
	SessionID int64
	Seq       int
	Timestamp float64
	X         float64
	Y         float64
	Z         float64
	Roll      sql.NullFloat64
	Pitch     sql.NullFloat64
	Yaw       sql.NullFloat64
}

type scanRowData struct {
	ScanID    int64
	Timestamp float64
	SourceID  sql.NullString
	Strength  sql.NullFloat64
}

// Evaluation kinds.
const (
	KindFingerprint = "fingerprint"
	KindDeadReckon  = "deadreckon"
)

// EvaluationRun is a persisted set of metrics.
type EvaluationRun struct {
	ID        uuid.UUID       `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Kind      string          `json:"kind"`
	Dataset   string          `json:"dataset"`
	SessionID *int64          `json:"sessionID,omitempty"`
	Metrics   json.RawMessage `json:"metrics"`
}
