package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/embedding"
	"github.com/vuxtra/jivemcp/internal/model"
)

// rebuildVectorIndex loads every persisted embedding into the in-memory
// HNSW graph and every searchable text into the bleve index. Called once
// on Open so a freshly-opened namespace is immediately searchable.
func (s *Store) rebuildVectorIndex() error {
	rows, err := s.db.Query(`SELECT id, title, description, acceptance_criteria, embedding, embedding_model_id FROM work_items`)
	if err != nil {
		return apperr.Wrap(apperr.StoreError, "loading work items for index rebuild", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, title, description, criteriaJSON, modelID string
		var emb []byte
		if err := rows.Scan(&id, &title, &description, &criteriaJSON, &emb, &modelID); err != nil {
			return apperr.Wrap(apperr.StoreError, "scanning work item row", err)
		}
		// A vector produced by a different model id is left out of the
		// index; the row re-embeds lazily on its next write.
		if len(emb) > 0 && modelID == embedding.ModelID {
			s.vw.Upsert("work_item", id, vectorOf(emb))
		}
		text := title + "\n" + description
		for _, c := range unmarshalStrings(criteriaJSON) {
			text += "\n" + c
		}
		_ = s.kw.Upsert("work_item", id, text)
	}
	for _, kind := range []string{"architecture", "troubleshoot"} {
		if err := s.rebuildMemoryIndex(kind); err != nil {
			return err
		}
	}
	return nil
}

// PutWorkItem inserts a new work item, assigning id, sequence_order, and
// indexing its embedding. Callers must hold the write lock.
func (s *Store) PutWorkItem(ctx context.Context, w *model.WorkItem, vec []float32) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := nowISO()
	w.CreatedAt = parseISO(now)
	w.UpdatedAt = w.CreatedAt

	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		if w.ParentID != nil {
			var maxOrder sql.NullInt64
			if err := tx.QueryRowContext(ctx,
				`SELECT MAX(sequence_order) FROM work_items WHERE parent_id = ?`, *w.ParentID,
			).Scan(&maxOrder); err != nil {
				return apperr.Wrap(apperr.StoreError, "computing sequence_order", err)
			}
			w.SequenceOrder = 0
			if maxOrder.Valid {
				w.SequenceOrder = int(maxOrder.Int64) + 1
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO work_items (id, item_type, title, description, status, priority, complexity,
				parent_id, sequence_order, acceptance_criteria, context_tags, notes,
				progress_percentage, created_at, updated_at, embedding, embedding_model_id)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			w.ID, string(w.ItemType), w.Title, w.Description, string(w.Status), string(w.Priority), string(w.Complexity),
			w.ParentID, w.SequenceOrder, marshalJSON(w.AcceptanceCriteria), marshalJSON(w.ContextTags), w.Notes,
			w.ProgressPercentage, now, now, encodeVector(vec), w.EmbeddingModelID,
		)
		if err != nil {
			return apperr.Wrap(apperr.StoreError, "inserting work item", err)
		}
		for _, dep := range w.Dependencies {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO work_item_dependencies (src, dst) VALUES (?, ?)`, w.ID, dep,
			); err != nil {
				return apperr.Wrap(apperr.StoreError, "inserting dependency edge", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.vw.Upsert("work_item", w.ID, vec)
	return s.kw.Upsert("work_item", w.ID, w.SearchableText())
}

// GetWorkItem fetches a single work item by id.
func (s *Store) GetWorkItem(ctx context.Context, id string) (*model.WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, item_type, title, description, status, priority, complexity, parent_id,
			sequence_order, acceptance_criteria, context_tags, notes, progress_percentage,
			created_at, updated_at, embedding_model_id
		FROM work_items WHERE id = ?`, id)
	w, err := scanWorkItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.notFound("work_item", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "fetching work item", err)
	}
	deps, err := s.ListDependencies(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Dependencies = deps
	w.Namespace = s.Namespace
	return w, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkItem(row scanner) (*model.WorkItem, error) {
	var w model.WorkItem
	var parentID sql.NullString
	var itemType, status, priority, complexity, criteriaJSON, tagsJSON, createdAt, updatedAt string
	if err := row.Scan(&w.ID, &itemType, &w.Title, &w.Description, &status, &priority, &complexity,
		&parentID, &w.SequenceOrder, &criteriaJSON, &tagsJSON, &w.Notes, &w.ProgressPercentage,
		&createdAt, &updatedAt, &w.EmbeddingModelID); err != nil {
		return nil, err
	}
	w.ItemType = model.ItemType(itemType)
	w.Status = model.Status(status)
	w.Priority = model.Priority(priority)
	w.Complexity = model.Complexity(complexity)
	if parentID.Valid {
		v := parentID.String
		w.ParentID = &v
	}
	w.AcceptanceCriteria = unmarshalStrings(criteriaJSON)
	w.ContextTags = unmarshalStrings(tagsJSON)
	w.CreatedAt = parseISO(createdAt)
	w.UpdatedAt = parseISO(updatedAt)
	return &w, nil
}

// WorkItemFilter selects a subset of work items for listing.
type WorkItemFilter struct {
	ItemType *model.ItemType
	Status   *model.Status
	Priority *model.Priority
	ParentID *string
	Tags     []string // intersection: item must carry every tag listed
	SortBy   string    // created_at|updated_at|priority|sequence_order|title
	Limit    int
	Offset   int
}

// ListWorkItems returns items matching the filter plus whether more rows
// exist beyond Limit (has_more).
func (s *Store) ListWorkItems(ctx context.Context, f WorkItemFilter) ([]*model.WorkItem, bool, error) {
	query := `SELECT id, item_type, title, description, status, priority, complexity, parent_id,
		sequence_order, acceptance_criteria, context_tags, notes, progress_percentage,
		created_at, updated_at, embedding_model_id FROM work_items WHERE 1=1`
	var args []any
	if f.ItemType != nil {
		query += ` AND item_type = ?`
		args = append(args, string(*f.ItemType))
	}
	if f.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*f.Status))
	}
	if f.Priority != nil {
		query += ` AND priority = ?`
		args = append(args, string(*f.Priority))
	}
	if f.ParentID != nil {
		if *f.ParentID == "" {
			query += ` AND parent_id IS NULL`
		} else {
			query += ` AND parent_id = ?`
			args = append(args, *f.ParentID)
		}
	}
	query += sortClause(f.SortBy)

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit+1, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.StoreError, "listing work items", err)
	}
	defer rows.Close()

	var items []*model.WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, false, apperr.Wrap(apperr.StoreError, "scanning work item", err)
		}
		w.Namespace = s.Namespace
		items = append(items, w)
	}

	if len(f.Tags) > 0 {
		items = filterByTags(items, f.Tags)
	}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	for _, w := range items {
		deps, err := s.ListDependencies(ctx, w.ID)
		if err != nil {
			return nil, false, err
		}
		w.Dependencies = deps
	}
	return items, hasMore, nil
}

func filterByTags(items []*model.WorkItem, tags []string) []*model.WorkItem {
	out := items[:0]
	for _, w := range items {
		have := make(map[string]bool, len(w.ContextTags))
		for _, t := range w.ContextTags {
			have[t] = true
		}
		all := true
		for _, t := range tags {
			if !have[t] {
				all = false
				break
			}
		}
		if all {
			out = append(out, w)
		}
	}
	return out
}

func sortClause(sortBy string) string {
	switch sortBy {
	case "updated_at":
		return ` ORDER BY updated_at DESC, id ASC`
	case "priority":
		// Semantic order, not alphabetical.
		return ` ORDER BY CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, id ASC`
	case "sequence_order":
		return ` ORDER BY sequence_order ASC, id ASC`
	case "title":
		return ` ORDER BY title ASC, id ASC`
	default:
		return ` ORDER BY created_at DESC, id ASC`
	}
}

// UpdateWorkItem writes every mutable column from w (callers load the row,
// change the fields they need, and pass the whole item back); newVec is
// non-nil only when a searchable text field changed and must be re-embedded.
func (s *Store) UpdateWorkItem(ctx context.Context, w *model.WorkItem, newVec []float32) error {
	now := nowISO()
	w.UpdatedAt = parseISO(now)
	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE work_items SET item_type=?, title=?, description=?, status=?, priority=?, complexity=?,
				parent_id=?, sequence_order=?, acceptance_criteria=?, context_tags=?, notes=?,
				progress_percentage=?, updated_at=?, embedding=COALESCE(?, embedding),
				embedding_model_id=COALESCE(NULLIF(?, ''), embedding_model_id)
			WHERE id=?`,
			string(w.ItemType), w.Title, w.Description, string(w.Status), string(w.Priority), string(w.Complexity),
			w.ParentID, w.SequenceOrder, marshalJSON(w.AcceptanceCriteria), marshalJSON(w.ContextTags), w.Notes,
			w.ProgressPercentage, now, nullableVector(newVec), w.EmbeddingModelID, w.ID,
		)
		if err != nil {
			return apperr.Wrap(apperr.StoreError, "updating work item", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM work_item_dependencies WHERE src = ?`, w.ID); err != nil {
			return apperr.Wrap(apperr.StoreError, "clearing dependency edges", err)
		}
		for _, dep := range w.Dependencies {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO work_item_dependencies (src, dst) VALUES (?, ?)`, w.ID, dep,
			); err != nil {
				return apperr.Wrap(apperr.StoreError, "inserting dependency edge", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if newVec != nil {
		s.vw.Upsert("work_item", w.ID, newVec)
	}
	return s.kw.Upsert("work_item", w.ID, w.SearchableText())
}

func nullableVector(vec []float32) any {
	if vec == nil {
		return nil
	}
	return encodeVector(vec)
}

// DeleteWorkItem removes a single work item row (and its dependency
// edges, via ON DELETE CASCADE) and its search index entries. Recursive
// deletion is orchestrated by jive_manage_work_item's deleteSubtree
// (internal/tools/workitem), which calls this once per node in post-order
// inside a single write-lock hold.
func (s *Store) DeleteWorkItem(ctx context.Context, id string) error {
	res, err := s.execWrite(ctx, "deleting work item", `DELETE FROM work_items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return s.notFound("work_item", id)
	}
	s.vw.Delete("work_item", id)
	_ = s.kw.Delete("work_item", id)
	return nil
}

// CountChildren reports how many work items have parentID as parent.
func (s *Store) CountChildren(ctx context.Context, parentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_items WHERE parent_id = ?`, parentID).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.StoreError, "counting children", err)
	}
	return n, nil
}

// ChildrenOf returns the direct children of parentID ordered by sequence.
func (s *Store) ChildrenOf(ctx context.Context, parentID string) ([]*model.WorkItem, error) {
	items, _, err := s.ListWorkItems(ctx, WorkItemFilter{ParentID: &parentID, SortBy: "sequence_order", Limit: 200})
	return items, err
}

// ListDependencies returns the ids this item directly depends on.
func (s *Store) ListDependencies(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dst FROM work_item_dependencies WHERE src = ? ORDER BY dst`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing dependencies", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var dst string
		if err := rows.Scan(&dst); err != nil {
			return nil, apperr.Wrap(apperr.StoreError, "scanning dependency", err)
		}
		out = append(out, dst)
	}
	return out, nil
}

// ListDependents returns the ids that directly depend on id.
func (s *Store) ListDependents(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT src FROM work_item_dependencies WHERE dst = ? ORDER BY src`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing dependents", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, apperr.Wrap(apperr.StoreError, "scanning dependent", err)
		}
		out = append(out, src)
	}
	return out, nil
}

// AllDependencyEdges returns the full (src,dst) dependency adjacency for
// cycle detection (internal/hierarchy), scoped to this namespace.
func (s *Store) AllDependencyEdges(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT src, dst FROM work_item_dependencies`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing dependency edges", err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var src, dst string
		if err := rows.Scan(&src, &dst); err != nil {
			return nil, apperr.Wrap(apperr.StoreError, "scanning dependency edge", err)
		}
		out[src] = append(out[src], dst)
	}
	return out, nil
}

// AllParentEdges returns child->parent for every work item, for the
// hierarchy engine's parent-cycle check and tree walks.
func (s *Store) AllParentEdges(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, parent_id FROM work_items WHERE parent_id IS NOT NULL`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing parent edges", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, parent string
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, apperr.Wrap(apperr.StoreError, "scanning parent edge", err)
		}
		out[id] = parent
	}
	return out, nil
}

// ReorderSiblings assigns dense sequence_order 0..n-1 to ids in the given
// order, in a single transaction. Callers hold the write lock.
func (s *Store) ReorderSiblings(ctx context.Context, ids []string) error {
	return s.runInTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE work_items SET sequence_order = ?, updated_at = ? WHERE id = ?`, i, nowISO(), id,
			); err != nil {
				return apperr.Wrap(apperr.StoreError, "reordering sibling", err)
			}
		}
		return nil
	})
}

// SetProgress writes progress_percentage/status on a single work item
// without touching any other mutable field (used by the hierarchy
// engine's bottom-up roll-up).
func (s *Store) SetProgress(ctx context.Context, id string, percentage int, status model.Status) error {
	_, err := s.execWrite(ctx, "setting progress",
		`UPDATE work_items SET progress_percentage = ?, status = ?, updated_at = ? WHERE id = ?`,
		percentage, string(status), nowISO(), id,
	)
	return err
}
