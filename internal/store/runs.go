package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"creatorsync/internal/services"
)

// RunStatus is the lifecycle state of a ledger entry.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// Run is one ledger entry.
type Run struct {
	ID            string
	Type          string
	Status        RunStatus
	StopReason    string
	Params        map[string]any
	Counters      map[string]int
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time
}

const runColumns = "id, run_type, status, stop_reason, params_json, counters_json, error_message, started_at, finished_at, last_heartbeat"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		status       string
		stopReason   sql.NullString
		paramsJSON   sql.NullString
		countersJSON sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
		heartbeatRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Type, &status, &stopReason, &paramsJSON, &countersJSON,
		&errorMessage, &startedRaw, &finishedRaw, &heartbeatRaw); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StopReason = stopReason.String
	run.ErrorMessage = errorMessage.String
	if paramsJSON.Valid && paramsJSON.String != "" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &run.Params); err != nil {
			return nil, fmt.Errorf("decode run params: %w", err)
		}
	}
	if countersJSON.Valid && countersJSON.String != "" {
		if err := json.Unmarshal([]byte(countersJSON.String), &run.Counters); err != nil {
			return nil, fmt.Errorf("decode run counters: %w", err)
		}
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	run.FinishedAt = parseNullableTime(finishedRaw.String, finishedRaw.Valid)
	run.LastHeartbeat = parseNullableTime(heartbeatRaw.String, heartbeatRaw.Valid)
	return &run, nil
}

func encodeJSON(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// BeginRun records a new running entry. When another entry of the same type is
// still running it returns services.ErrRunInFlight.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	params, err := encodeJSON(run.Params)
	if err != nil {
		return fmt.Errorf("encode run params: %w", err)
	}
	now := s.timestamp()
	_, err = s.execWithRetry(ctx,
		`INSERT INTO runs (id, run_type, status, params_json, started_at, last_heartbeat)
        VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Type, string(RunRunning), params, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return services.Wrap(services.ErrRunInFlight, "store", "begin run", fmt.Sprintf("%s run already in flight", run.Type), nil)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Heartbeat refreshes a running entry and stores its progress counters.
func (s *Store) Heartbeat(ctx context.Context, id string, counters map[string]int) error {
	encoded, err := encodeJSON(counters)
	if err != nil {
		return fmt.Errorf("encode run counters: %w", err)
	}
	_, err = s.execWithRetry(ctx,
		`UPDATE runs SET last_heartbeat = ?, counters_json = ? WHERE id = ? AND status = ?`,
		s.timestamp(), encoded, id, string(RunRunning),
	)
	if err != nil {
		return fmt.Errorf("run heartbeat: %w", err)
	}
	return nil
}

// FinishRun moves a running entry to its terminal status.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, stopReason string, counters map[string]int, errMessage string) error {
	encoded, err := encodeJSON(counters)
	if err != nil {
		return fmt.Errorf("encode run counters: %w", err)
	}
	now := s.timestamp()
	_, err = s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, stop_reason = ?, counters_json = ?, error_message = ?,
            finished_at = ?, last_heartbeat = ?
        WHERE id = ? AND status = ?`,
		string(status), nullableString(stopReason), encoded, nullableString(errMessage), now, now, id, string(RunRunning),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// ReclaimStaleRuns fails running entries of runType whose heartbeat is older
// than cutoff. It returns the number of entries reclaimed.
func (s *Store) ReclaimStaleRuns(ctx context.Context, runType string, cutoff time.Time) (int64, error) {
	now := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, stop_reason = ?, finished_at = ?, error_message = ?
        WHERE run_type = ? AND status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		string(RunFailed), "stale", now, "heartbeat expired", runType, string(RunRunning), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim stale runs: %w", err)
	}
	return affected, nil
}

// GetRun fetches a ledger entry. It returns nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.queryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent ledger entries, optionally filtered by type.
func (s *Store) ListRuns(ctx context.Context, runType string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if runType != "" {
		query += ` WHERE run_type = ?`
		args = append(args, runType)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}
