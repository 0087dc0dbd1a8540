package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/model"
)

// PutExecutionRecord inserts a new ExecutionRecord.
func (s *Store) PutExecutionRecord(ctx context.Context, e *model.ExecutionRecord) error {
	if e.ExecutionID == "" {
		e.ExecutionID = uuid.NewString()
	}
	agentCtx, _ := json.Marshal(e.AgentContext)
	_, err := s.execWrite(ctx, "inserting execution record", `
		INSERT INTO execution_records (execution_id, work_item_id, mode, status, started_at, ended_at,
			agent_context, validation_issues, artifacts)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ExecutionID, e.WorkItemID, string(e.Mode), string(e.Status), e.StartedAt.UTC().Format(time.RFC3339Nano),
		nullableEndedAt(e.EndedAt), string(agentCtx), marshalJSON(e.ValidationIssues), marshalJSON(e.Artifacts),
	)
	return err
}

func nullableEndedAt(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// GetExecutionRecord fetches a single ExecutionRecord by id.
func (s *Store) GetExecutionRecord(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT execution_id, work_item_id, mode, status, started_at, ended_at, agent_context,
			validation_issues, artifacts FROM execution_records WHERE execution_id = ?`, id)
	return scanExecutionRecord(row, s.Namespace, id)
}

// UpdateExecutionStatus transitions an ExecutionRecord's status (used by
// jive_execute_work_item's cancel action).
func (s *Store) UpdateExecutionStatus(ctx context.Context, id string, status model.ExecutionStatus, ended bool) error {
	var endedAt any
	if ended {
		endedAt = nowISO()
	}
	res, err := s.execWrite(ctx, "updating execution status",
		`UPDATE execution_records SET status = ?, ended_at = COALESCE(?, ended_at) WHERE execution_id = ?`,
		string(status), endedAt, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.notFound("execution_record", id)
	}
	return nil
}

// ListExecutionRecords returns every ExecutionRecord for a work item,
// most recent first.
func (s *Store) ListExecutionRecords(ctx context.Context, workItemID string) ([]*model.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, work_item_id, mode, status, started_at, ended_at, agent_context,
			validation_issues, artifacts FROM execution_records
		WHERE work_item_id = ? ORDER BY started_at DESC`, workItemID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing execution records", err)
	}
	defer rows.Close()
	var out []*model.ExecutionRecord
	for rows.Next() {
		e, err := scanExecutionRecord(rows, s.Namespace, workItemID)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func scanExecutionRecord(row scanner, ns, idForErr string) (*model.ExecutionRecord, error) {
	var e model.ExecutionRecord
	var mode, status, startedAt, agentCtxJSON, issuesJSON, artifactsJSON string
	var endedAt sql.NullString
	if err := row.Scan(&e.ExecutionID, &e.WorkItemID, &mode, &status, &startedAt, &endedAt,
		&agentCtxJSON, &issuesJSON, &artifactsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "execution record %q not found in namespace %q", idForErr, ns)
		}
		return nil, apperr.Wrap(apperr.StoreError, "fetching execution record", err)
	}
	e.Namespace = ns
	e.Mode = model.ExecutionMode(mode)
	e.Status = model.ExecutionStatus(status)
	e.StartedAt = parseISO(startedAt)
	if endedAt.Valid {
		t := parseISO(endedAt.String)
		e.EndedAt = &t
	}
	_ = json.Unmarshal([]byte(agentCtxJSON), &e.AgentContext)
	e.ValidationIssues = unmarshalStrings(issuesJSON)
	e.Artifacts = unmarshalStrings(artifactsJSON)
	return &e, nil
}

// AppendProgressEvent records one progress-history entry, filling in
// ev's assigned id and timestamp.
func (s *Store) AppendProgressEvent(ctx context.Context, ev *model.ProgressEvent) error {
	now := nowISO()
	ev.At = parseISO(now)
	res, err := s.execWrite(ctx, "appending progress event", `
		INSERT INTO progress_events (entity_id, percentage, status, notes, blockers, at)
		VALUES (?,?,?,?,?,?)`,
		ev.EntityID, ev.Percentage, string(ev.Status), ev.Notes, marshalJSON(ev.Blockers), now,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	ev.ID = id
	return nil
}

// ListProgressEvents returns the progress history for an entity, oldest
// first, optionally bounded by a time range.
func (s *Store) ListProgressEvents(ctx context.Context, entityID string, since, until *string) ([]*model.ProgressEvent, error) {
	query := `SELECT id, entity_id, percentage, status, notes, blockers, at FROM progress_events WHERE entity_id = ?`
	args := []any{entityID}
	if since != nil {
		query += ` AND at >= ?`
		args = append(args, *since)
	}
	if until != nil {
		query += ` AND at <= ?`
		args = append(args, *until)
	}
	query += ` ORDER BY at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing progress events", err)
	}
	defer rows.Close()
	var out []*model.ProgressEvent
	for rows.Next() {
		var ev model.ProgressEvent
		var status, blockersJSON, at string
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.Percentage, &status, &ev.Notes, &blockersJSON, &at); err != nil {
			return nil, apperr.Wrap(apperr.StoreError, "scanning progress event", err)
		}
		ev.Namespace = s.Namespace
		ev.Status = model.Status(status)
		ev.Blockers = unmarshalStrings(blockersJSON)
		ev.At = parseISO(at)
		out = append(out, &ev)
	}
	return out, nil
}
