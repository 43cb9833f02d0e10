package storage

import (
	"context"

	"github.com/YusufHosny/r-d/internal/dataset"
	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/inertial"
	"github.com/YusufHosny/r-d/internal/session"
	"github.com/google/uuid"
)

var _ Store = (*SqliteStore)(nil)

// Store provides an interface for managing recorded sessions, the source
// dictionary and evaluation results. All operations that write to the database
// should be considered atomic.
type Store interface {
	dataset.SessionReader

	// CreateSession registers a new session in a named dataset and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - dataset: Name of the dataset the session belongs to
	//   - name: Session name, unique within the dataset
	//   - device: Optional recording device description
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, dataset, name, device string) (sessionID int64, err error)

	// Session retrieves session metadata by its ID.
	//
	// Returns ErrNoData if the session does not exist.
	Session(ctx context.Context, id int64) (info *session.Info, err error)

	// StoreIMUSamples saves IMU samples for a session in a single transaction.
	// Sample order is preserved.
	StoreIMUSamples(ctx context.Context, sessionID int64, samples []inertial.Sample) error

	// StoreScans saves scans and their observations for a session in a single
	// transaction. Scan and observation order is preserved.
	StoreScans(ctx context.Context, sessionID int64, scans []fingerprint.Scan) error

	// StoreGroundTruth saves the ground truth track of a session. The track is
	// validated before anything is written.
	StoreGroundTruth(ctx context.Context, sessionID int64, gt session.GroundTruth) error

	// LoadRecords loads every session of a dataset in order.
	//
	// Returns ErrNoData if the dataset has no sessions.
	LoadRecords(ctx context.Context, dataset string) ([]*session.Record, error)

	// StoreDictionary replaces the persisted source dictionary.
	StoreDictionary(ctx context.Context, dict *fingerprint.Dictionary) error

	// LoadDictionary returns the persisted source dictionary.
	//
	// Returns ErrNoData if no dictionary has been stored.
	LoadDictionary(ctx context.Context) (*fingerprint.Dictionary, error)

	// StoreEvaluation persists a set of metrics.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - kind: Evaluation kind, KindFingerprint or KindDeadReckon
	//   - dataset: Dataset the metrics were computed on
	//   - sessionID: Optional session the metrics belong to
	//   - metrics: JSON-serializable metrics
	//
	// Returns:
	//   - runID: Unique identifier of the stored run
	//   - error: If storage fails or context is cancelled
	StoreEvaluation(ctx context.Context, kind, dataset string, sessionID *int64, metrics any) (runID uuid.UUID, err error)

	// Close releases all database connections and resources.
	// After Close is called, the store instance cannot be reused.
	// It is safe to call Close multiple times.
	Close() error
}
