package state

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/docsmith/docsmith/pkg/models"
)

// RunRecord is one persisted run for status reporting.
type RunRecord struct {
	// ID is the run identifier.
	ID string
	// Source is the codebase locator.
	Source string
	// Formats is the requested format set.
	Formats []models.OutputFormat
	// Mode is the execution mode the run used.
	Mode models.ExecutionMode
	// State is the last recorded run state.
	State models.RunState
	// FailureKind is the failure taxonomy kind for failed runs.
	FailureKind string
	// FailureStage is the stage the failure occurred at, if any.
	FailureStage string
	// CreatedAt is when the run was submitted.
	CreatedAt time.Time
	// FinishedAt is when the run reached a terminal state.
	FinishedAt *time.Time
}

// CreateRun records a newly submitted run.
func (db *DB) CreateRun(runID string, req *models.TaskRequest) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	formats := make([]string, 0, len(req.Formats))
	for _, f := range req.Formats {
		formats = append(formats, string(f))
	}
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, source, formats, state) VALUES (?, ?, ?, ?)`,
		runID, req.Source, strings.Join(formats, ","), string(models.RunStateProbing),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRunState records a state transition for a run. The mode is recorded
// once the probe has decided it; pass an empty mode to leave it unchanged.
func (db *DB) UpdateRunState(runID string, st models.RunState, mode models.ExecutionMode) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var err error
	if mode != "" {
		_, err = db.conn.Exec(`UPDATE runs SET state = ?, mode = ? WHERE id = ?`, string(st), string(mode), runID)
	} else {
		_, err = db.conn.Exec(`UPDATE runs SET state = ? WHERE id = ?`, string(st), runID)
	}
	if err != nil {
		return fmt.Errorf("update run state: %w", err)
	}
	return nil
}

// FinishRun records a terminal state with optional failure details.
func (db *DB) FinishRun(runID string, st models.RunState, failureKind, failureStage string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		`UPDATE runs SET state = ?, failure_kind = ?, failure_stage = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(st), failureKind, failureStage, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordStageAttempt records one stage execution attempt.
func (db *DB) RecordStageAttempt(runID, stageID string, attempt int, status, errMsg string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO stage_attempts (run_id, stage_id, attempt, status, error) VALUES (?, ?, ?, ?, ?)`,
		runID, stageID, attempt, status, errMsg,
	)
	if err != nil {
		return fmt.Errorf("record stage attempt: %w", err)
	}
	return nil
}

// RecordArtifact records artifact metadata. Payloads stay in memory or in
// object storage; the database only tracks provenance.
func (db *DB) RecordArtifact(runID string, a *models.Artifact) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO artifacts (id, run_id, stage_id, attempt, kind, format, storage_ref) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, runID, a.StageID, a.Attempt, string(a.Kind), string(a.Format), a.StorageRef,
	)
	if err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	return nil
}

// GetRun returns one run record by ID.
func (db *DB) GetRun(runID string) (*RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(
		`SELECT id, source, formats, mode, state, failure_kind, failure_stage, created_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return rec, err
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]*RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(
		`SELECT id, source, formats, mode, state, failure_kind, failure_stage, created_at, finished_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans one run row.
func scanRun(s scanner) (*RunRecord, error) {
	var rec RunRecord
	var formats, mode, st string
	var finishedAt sql.NullTime
	err := s.Scan(&rec.ID, &rec.Source, &formats, &mode, &st,
		&rec.FailureKind, &rec.FailureStage, &rec.CreatedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if formats != "" {
		for _, f := range strings.Split(formats, ",") {
			rec.Formats = append(rec.Formats, models.OutputFormat(f))
		}
	}
	rec.Mode = models.ExecutionMode(mode)
	rec.State = models.RunState(st)
	if finishedAt.Valid {
		rec.FinishedAt = &finishedAt.Time
	}
	return &rec, nil
}
