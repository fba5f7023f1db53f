package gateway

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"revrecon/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump on schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates the requested run or queue entry does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRunStore persists runs, report rows, the review queue, and audit
// trails in a single SQLite database.
type SQLiteRunStore struct {
	db   *sql.DB
	path string
}

// OpenStore connects to (or creates) the run database at path.
func OpenStore(path string) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteRunStore{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *SQLiteRunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteRunStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// SaveRun persists a completed run in one transaction: the run row, every
// report row, the escalated queue entries, and the full audit trail.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, result *domain.RunResult) error {
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	ambiguousJSON, err := json.Marshal(result.Ambiguous)
	if err != nil {
		return fmt.Errorf("marshal ambiguous ties: %w", err)
	}
	quarantinedJSON, err := json.Marshal(result.QuarantinedRecords)
	if err != nil {
		return fmt.Errorf("marshal quarantined records: %w", err)
	}
	failuresJSON, err := json.Marshal(result.PartitionFailures)
	if err != nil {
		return fmt.Errorf("marshal partition failures: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, period, status, summary_json, ambiguous_json, quarantined_json, failures_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Period, string(result.Status),
		string(summaryJSON), string(ambiguousJSON), string(quarantinedJSON), string(failuresJSON),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", result.RunID, err)
	}

	for i, row := range result.Rows {
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal report row %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO report_rows (run_id, position, row_json) VALUES (?, ?, ?)",
			result.RunID, i, string(rowJSON)); err != nil {
			return fmt.Errorf("insert report row %d: %w", i, err)
		}
	}

	for _, dec := range result.Decisions {
		if dec.Action != domain.ActionEscalated {
			continue
		}
		excJSON, err := json.Marshal(dec.Exception)
		if err != nil {
			return fmt.Errorf("marshal exception: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exceptions (run_id, category, confidence, dollar_delta, reason, exception_json, review_status)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, string(dec.Exception.Category), dec.Exception.Confidence,
			dec.Exception.Difference.DollarDelta, dec.Reason, string(excJSON),
			string(domain.ReviewPending)); err != nil {
			return fmt.Errorf("insert queue entry: %w", err)
		}
	}

	for _, ev := range result.AuditEvents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO audit_events (run_id, event_id, stage, input_refs, output_refs, note, timestamp)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.RunID, ev.EventID, string(ev.Stage),
			strings.Join(ev.InputRefs, ","), strings.Join(ev.OutputRefs, ","),
			ev.Note, ev.Timestamp.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert audit event %s: %w", ev.EventID, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a persisted run: status, summary, report rows, quarantine and
// failure lists, and the audit trail. The in-memory-only intermediates
// (candidates, differences) are not persisted and come back empty.
func (s *SQLiteRunStore) GetRun(ctx context.Context, runID string) (*domain.RunResult, error) {
	result := &domain.RunResult{RunID: runID}

	var status, summaryJSON string
	var ambiguousJSON, quarantinedJSON, failuresJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT period, status, summary_json, ambiguous_json, quarantined_json, failures_json FROM runs WHERE run_id = ?",
		runID).Scan(&result.Period, &status, &summaryJSON, &ambiguousJSON, &quarantinedJSON, &failuresJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	result.Status = domain.RunStatus(status)
	if err := json.Unmarshal([]byte(summaryJSON), &result.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	if ambiguousJSON.Valid {
		if err := json.Unmarshal([]byte(ambiguousJSON.String), &result.Ambiguous); err != nil {
			return nil, fmt.Errorf("unmarshal ambiguous ties: %w", err)
		}
	}
	if quarantinedJSON.Valid {
		if err := json.Unmarshal([]byte(quarantinedJSON.String), &result.QuarantinedRecords); err != nil {
			return nil, fmt.Errorf("unmarshal quarantined records: %w", err)
		}
	}
	if failuresJSON.Valid {
		if err := json.Unmarshal([]byte(failuresJSON.String), &result.PartitionFailures); err != nil {
			return nil, fmt.Errorf("unmarshal partition failures: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT row_json FROM report_rows WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("query report rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rowJSON string
		if err := rows.Scan(&rowJSON); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		var row domain.ReportRow
		if err := json.Unmarshal([]byte(rowJSON), &row); err != nil {
			return nil, fmt.Errorf("unmarshal report row: %w", err)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}

	events, err := s.ListAuditEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	result.AuditEvents = events
	return result, nil
}

// ListRuns returns the stored runs, newest first, without their row details.
func (s *SQLiteRunStore) ListRuns(ctx context.Context) ([]domain.RunResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, period, status, summary_json FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var results []domain.RunResult
	for rows.Next() {
		var r domain.RunResult
		var status, summaryJSON string
		if err := rows.Scan(&r.RunID, &r.Period, &status, &summaryJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = domain.RunStatus(status)
		if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListExceptions returns review queue entries, optionally restricted to a run
// and to pending entries.
func (s *SQLiteRunStore) ListExceptions(ctx context.Context, runID string, pendingOnly bool) ([]domain.QueueEntry, error) {
	query := "SELECT id, run_id, reason, exception_json, review_status, COALESCE(resolution, '') FROM exceptions"
	var clauses []string
	var args []any
	if runID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, runID)
	}
	if pendingOnly {
		clauses = append(clauses, "review_status = ?")
		args = append(args, string(domain.ReviewPending))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exceptions: %w", err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		var excJSON, status string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Reason, &excJSON, &status, &e.Resolution); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		e.ReviewStatus = domain.ReviewStatus(status)
		if err := json.Unmarshal([]byte(excJSON), &e.Exception); err != nil {
			return nil, fmt.Errorf("unmarshal exception: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ResolveException records the human decision on a pending queue entry. The
// decision feeds the next run's input adjustment; stored run results are
// never modified.
func (s *SQLiteRunStore) ResolveException(ctx context.Context, entryID int64, status domain.ReviewStatus, note string) error {
	switch status {
	case domain.ReviewAccepted, domain.ReviewOverridden, domain.ReviewRejected:
	default:
		return fmt.Errorf("invalid review status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE exceptions SET review_status = ?, resolution = ? WHERE id = ? AND review_status = ?",
		string(status), note, entryID, string(domain.ReviewPending))
	if err != nil {
		return fmt.Errorf("resolve queue entry %d: %w", entryID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("queue entry %d: %w (or not pending)", entryID, ErrNotFound)
	}
	return nil
}

// ListAuditEvents returns the run's audit trail in append order.
func (s *SQLiteRunStore) ListAuditEvents(ctx context.Context, runID string) ([]domain.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, stage, input_refs, output_refs, note, timestamp
         FROM audit_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		var inputRefs, outputRefs, timestamp string
		if err := rows.Scan(&ev.EventID, (*string)(&ev.Stage), &inputRefs, &outputRefs, &ev.Note, &timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.RunID = runID
		if inputRefs != "" {
			ev.InputRefs = strings.Split(inputRefs, ",")
		}
		if outputRefs != "" {
			ev.OutputRefs = strings.Split(outputRefs, ",")
		}
		ts, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		ev.Timestamp = ts
		events = append(events, ev)
	}
	return events, rows.Err()
}
