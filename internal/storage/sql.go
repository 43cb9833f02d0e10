package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      dataset,
                      name,
                      device,
                      created_at)
VALUES (?, ?, ?, ?)`

	selectSessionSQL = `
SELECT 
    id, 
    dataset, 
    name, 
    device, 
    created_at 
FROM sessions 
WHERE 
    id = ?`

	selectSessionByNameSQL = `
SELECT 
    id, 
    dataset, 
    name, 
    device, 
    created_at 
FROM sessions 
WHERE 
    dataset = ? AND name = ?`

	selectSessionsSQL = `
SELECT 
    id, 
    dataset, 
    name, 
    device, 
    created_at 
FROM sessions 
WHERE 
    dataset = ?
ORDER BY id`

	insertIMUSampleSQL = `
INSERT INTO imu_samples (session_id,
                         seq,
                         timestamp,
                         accel_x,
                         accel_y,
                         accel_z)
VALUES `

	selectIMUSamplesSQL = `
SELECT 
    timestamp, 
    accel_x, 
    accel_y, 
    accel_z 
FROM imu_samples 
WHERE 
    session_id = ? 
ORDER BY seq`

	insertScanSQL = `
INSERT INTO scans (session_id,
                   seq,
                   timestamp,
                   count)
VALUES (?, ?, ?, ?)`

	insertObservationSQL = `
INSERT INTO observations (scan_id,
                          position,
                          source_id,
                          strength)
VALUES `

	selectScanBoundsSQL = `
SELECT 
    MIN(timestamp), 
    MAX(timestamp) 
FROM scans 
WHERE 
    session_id = ?`

	selectScansSQL = `
SELECT 
    s.id, 
    s.timestamp, 
    o.source_id, 
    o.strength 
FROM scans s
    LEFT JOIN observations o ON o.scan_id = s.id
WHERE 
    s.session_id = ? 
    AND s.timestamp BETWEEN ? AND ?
ORDER BY s.seq, o.position`

	insertGroundTruthSQL = `
INSERT INTO ground_truth (session_id,
                          seq,
                          timestamp,
                          x,
                          y,
                          z,
                          roll,
                          pitch,
                          yaw)
VALUES `

	selectGroundTruthSQL = `
SELECT 
    timestamp, 
    x, 
    y, 
    z, 
    roll, 
    pitch, 
    yaw 
FROM ground_truth 
WHERE 
    session_id = ? 
ORDER BY seq`

	deleteSourcesSQL = `DELETE FROM sources`

	insertSourceSQL = `
INSERT INTO sources (idx,
                     source_id)
VALUES `

	selectSourcesSQL = `
SELECT 
    source_id 
FROM sources 
ORDER BY idx`

	insertEvaluationSQL = `
INSERT INTO evaluation_runs (id,
                             created_at,
                             kind,
                             dataset,
                             session_id,
                             metrics)
VALUES (?, ?, ?, ?, ?, ?)`

	selectEvaluationsSQL = `
SELECT 
    id, 
    created_at, 
    kind, 
    dataset, 
    session_id, 
    metrics 
FROM evaluation_runs 
WHERE 
    kind = ? 
ORDER BY created_at, id`
)

// deleteSessionSQL removes a session and everything recorded for it, children first.
var deleteSessionSQL = []string{
	`DELETE FROM observations WHERE scan_id IN (SELECT id FROM scans WHERE session_id = ?)`,
	`DELETE FROM scans WHERE session_id = ?`,
	`DELETE FROM imu_samples WHERE session_id = ?`,
	`DELETE FROM ground_truth WHERE session_id = ?`,
	`UPDATE evaluation_runs SET session_id = NULL WHERE session_id = ?`,
	`DELETE FROM sessions WHERE id = ?`,
}

const initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_scans_session_timestamp ON scans (session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_evaluation_runs_kind ON evaluation_runs (kind, created_at);`

//go:embed schema.sql
var initSchemaSQL string
