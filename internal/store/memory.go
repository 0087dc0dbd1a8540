package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/model"
)

func (s *Store) rebuildMemoryIndex(kind string) error {
	table := memoryTable(kind)
	bodyCols := "ai_requirements, '[]'"
	if kind == "troubleshoot" {
		bodyCols = "ai_solutions, ai_use_case"
	}
	rows, err := s.db.Query(`SELECT id, title, keywords, embedding, ` + bodyCols + ` FROM ` + table)
	if err != nil {
		return apperr.Wrap(apperr.StoreError, "loading "+kind+" for index rebuild", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, title, keywordsJSON, body, useCaseJSON string
		var emb []byte
		if err := rows.Scan(&id, &title, &keywordsJSON, &emb, &body, &useCaseJSON); err != nil {
			return apperr.Wrap(apperr.StoreError, "scanning "+kind+" row", err)
		}
		if len(emb) > 0 {
			s.vw.Upsert(kind, id, vectorOf(emb))
		}
		keywords := unmarshalStrings(keywordsJSON)
		text := (&model.ArchitectureItem{Title: title, AIRequirements: body, Keywords: keywords}).SearchableText()
		if kind == "troubleshoot" {
			text = (&model.TroubleshootItem{Title: title, AISolutions: body, AIUseCase: unmarshalStrings(useCaseJSON), Keywords: keywords}).SearchableText()
		}
		_ = s.kw.Upsert(kind, id, text)
	}
	return nil
}

func memoryTable(kind string) string {
	if kind == "architecture" {
		return "architecture_memory"
	}
	return "troubleshoot_memory"
}

// PutArchitectureItem inserts a new Architecture memory item. A non-zero
// CreatedAt (such as an imported file's created_on) is kept; otherwise
// created_at is the insert time.
func (s *Store) PutArchitectureItem(ctx context.Context, a *model.ArchitectureItem, vec []float32) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := nowISO()
	created := now
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	a.CreatedAt, a.UpdatedAt = parseISO(created), parseISO(now)
	_, err := s.execWrite(ctx, "inserting architecture item", `
		INSERT INTO architecture_memory (id, slug, title, ai_requirements, ai_when_to_use, keywords,
			children_slugs, related_slugs, linked_epic_ids, tags, created_at, updated_at, embedding)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Slug, a.Title, a.AIRequirements, marshalJSON(a.AIWhenToUse), marshalJSON(a.Keywords),
		marshalJSON(a.ChildrenSlugs), marshalJSON(a.RelatedSlugs), marshalJSON(a.LinkedEpicIDs), marshalJSON(a.Tags),
		created, now, encodeVector(vec),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.SlugDuplicate, "architecture slug %q already exists", a.Slug)
		}
		return err
	}
	s.vw.Upsert("architecture", a.ID, vec)
	return s.kw.Upsert("architecture", a.ID, a.SearchableText())
}

// GetArchitectureItemBySlug fetches an Architecture item by slug.
func (s *Store) GetArchitectureItemBySlug(ctx context.Context, slug string) (*model.ArchitectureItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slug, title, ai_requirements, ai_when_to_use, keywords, children_slugs, related_slugs,
			linked_epic_ids, tags, created_at, updated_at FROM architecture_memory WHERE slug = ?`, slug)
	return scanArchitectureItem(row, s.Namespace, slug)
}

func scanArchitectureItem(row scanner, ns, slugForErr string) (*model.ArchitectureItem, error) {
	var a model.ArchitectureItem
	var whenJSON, kwJSON, childJSON, relJSON, epicJSON, tagsJSON, createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.AIRequirements, &whenJSON, &kwJSON, &childJSON, &relJSON,
		&epicJSON, &tagsJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "architecture item %q not found in namespace %q", slugForErr, ns)
		}
		return nil, apperr.Wrap(apperr.StoreError, "fetching architecture item", err)
	}
	a.Namespace = ns
	a.AIWhenToUse = unmarshalStrings(whenJSON)
	a.Keywords = unmarshalStrings(kwJSON)
	a.ChildrenSlugs = unmarshalStrings(childJSON)
	a.RelatedSlugs = unmarshalStrings(relJSON)
	a.LinkedEpicIDs = unmarshalStrings(epicJSON)
	a.Tags = unmarshalStrings(tagsJSON)
	a.CreatedAt = parseISO(createdAt)
	a.UpdatedAt = parseISO(updatedAt)
	return &a, nil
}

// GetArchitectureItemByID fetches an Architecture item by its internal
// id, used to materialize full records from search-index candidate ids.
func (s *Store) GetArchitectureItemByID(ctx context.Context, id string) (*model.ArchitectureItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slug, title, ai_requirements, ai_when_to_use, keywords, children_slugs, related_slugs,
			linked_epic_ids, tags, created_at, updated_at FROM architecture_memory WHERE id = ?`, id)
	return scanArchitectureItem(row, s.Namespace, id)
}

// UpdateArchitectureItem overwrites an existing Architecture item's fields.
func (s *Store) UpdateArchitectureItem(ctx context.Context, a *model.ArchitectureItem, newVec []float32) error {
	now := nowISO()
	a.UpdatedAt = parseISO(now)
	res, err := s.execWrite(ctx, "updating architecture item", `
		UPDATE architecture_memory SET title=?, ai_requirements=?, ai_when_to_use=?, keywords=?,
			children_slugs=?, related_slugs=?, linked_epic_ids=?, tags=?, updated_at=?,
			embedding=COALESCE(?, embedding)
		WHERE slug=?`,
		a.Title, a.AIRequirements, marshalJSON(a.AIWhenToUse), marshalJSON(a.Keywords),
		marshalJSON(a.ChildrenSlugs), marshalJSON(a.RelatedSlugs), marshalJSON(a.LinkedEpicIDs), marshalJSON(a.Tags),
		now, nullableVector(newVec), a.Slug,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.NotFound, "architecture item %q not found in namespace %q", a.Slug, s.Namespace)
	}
	if newVec != nil {
		s.vw.Upsert("architecture", a.ID, newVec)
	}
	return s.kw.Upsert("architecture", a.ID, a.SearchableText())
}

// DeleteArchitectureItem removes an Architecture item by slug.
func (s *Store) DeleteArchitectureItem(ctx context.Context, slug string) error {
	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM architecture_memory WHERE slug = ?`, slug).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Newf(apperr.NotFound, "architecture item %q not found in namespace %q", slug, s.Namespace)
		}
		return apperr.Wrap(apperr.StoreError, "looking up architecture item", err)
	}
	if _, err := s.execWrite(ctx, "deleting architecture item", `DELETE FROM architecture_memory WHERE slug = ?`, slug); err != nil {
		return err
	}
	s.vw.Delete("architecture", id)
	_ = s.kw.Delete("architecture", id)
	return nil
}

// ListArchitectureItems returns one page of Architecture items, most
// recently updated first, starting at offset. A limit <= 0 or > 200 is
// treated as 200.
func (s *Store) ListArchitectureItems(ctx context.Context, limit, offset int) ([]*model.ArchitectureItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, title, ai_requirements, ai_when_to_use, keywords, children_slugs, related_slugs,
			linked_epic_ids, tags, created_at, updated_at FROM architecture_memory
		ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing architecture items", err)
	}
	defer rows.Close()
	var out []*model.ArchitectureItem
	for rows.Next() {
		a, err := scanArchitectureItem(rows, s.Namespace, "")
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// --- Troubleshoot ---

// PutTroubleshootItem inserts a new Troubleshoot memory item, keeping a
// non-zero CreatedAt the same way PutArchitectureItem does.
func (s *Store) PutTroubleshootItem(ctx context.Context, t *model.TroubleshootItem, vec []float32) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := nowISO()
	created := now
	if !t.CreatedAt.IsZero() {
		created = t.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	t.CreatedAt, t.UpdatedAt = parseISO(created), parseISO(now)
	_, err := s.execWrite(ctx, "inserting troubleshoot item", `
		INSERT INTO troubleshoot_memory (id, slug, title, ai_use_case, ai_solutions, keywords,
			children_slugs, related_slugs, linked_epic_ids, tags, usage_count, success_count,
			created_at, updated_at, embedding)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Slug, t.Title, marshalJSON(t.AIUseCase), t.AISolutions, marshalJSON(t.Keywords),
		marshalJSON(t.ChildrenSlugs), marshalJSON(t.RelatedSlugs), marshalJSON(t.LinkedEpicIDs), marshalJSON(t.Tags),
		t.UsageCount, t.SuccessCount, created, now, encodeVector(vec),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.SlugDuplicate, "troubleshoot slug %q already exists", t.Slug)
		}
		return err
	}
	s.vw.Upsert("troubleshoot", t.ID, vec)
	return s.kw.Upsert("troubleshoot", t.ID, t.SearchableText())
}

func scanTroubleshootItem(row scanner, ns, slugForErr string) (*model.TroubleshootItem, error) {
	var t model.TroubleshootItem
	var useCaseJSON, kwJSON, childJSON, relJSON, epicJSON, tagsJSON, createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Slug, &t.Title, &useCaseJSON, &t.AISolutions, &kwJSON, &childJSON, &relJSON,
		&epicJSON, &tagsJSON, &t.UsageCount, &t.SuccessCount, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "troubleshoot item %q not found in namespace %q", slugForErr, ns)
		}
		return nil, apperr.Wrap(apperr.StoreError, "fetching troubleshoot item", err)
	}
	t.Namespace = ns
	t.AIUseCase = unmarshalStrings(useCaseJSON)
	t.Keywords = unmarshalStrings(kwJSON)
	t.ChildrenSlugs = unmarshalStrings(childJSON)
	t.RelatedSlugs = unmarshalStrings(relJSON)
	t.LinkedEpicIDs = unmarshalStrings(epicJSON)
	t.Tags = unmarshalStrings(tagsJSON)
	t.CreatedAt = parseISO(createdAt)
	t.UpdatedAt = parseISO(updatedAt)
	return &t, nil
}

// GetTroubleshootItemBySlug fetches a Troubleshoot item by slug.
func (s *Store) GetTroubleshootItemBySlug(ctx context.Context, slug string) (*model.TroubleshootItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slug, title, ai_use_case, ai_solutions, keywords, children_slugs, related_slugs,
			linked_epic_ids, tags, usage_count, success_count, created_at, updated_at
		FROM troubleshoot_memory WHERE slug = ?`, slug)
	return scanTroubleshootItem(row, s.Namespace, slug)
}

// GetTroubleshootItemByID fetches a Troubleshoot item by its internal
// id, used to materialize full records from search-index candidate ids.
func (s *Store) GetTroubleshootItemByID(ctx context.Context, id string) (*model.TroubleshootItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slug, title, ai_use_case, ai_solutions, keywords, children_slugs, related_slugs,
			linked_epic_ids, tags, usage_count, success_count, created_at, updated_at
		FROM troubleshoot_memory WHERE id = ?`, id)
	return scanTroubleshootItem(row, s.Namespace, id)
}

// UpdateTroubleshootItem overwrites an existing Troubleshoot item's fields.
func (s *Store) UpdateTroubleshootItem(ctx context.Context, t *model.TroubleshootItem, newVec []float32) error {
	now := nowISO()
	t.UpdatedAt = parseISO(now)
	res, err := s.execWrite(ctx, "updating troubleshoot item", `
		UPDATE troubleshoot_memory SET title=?, ai_use_case=?, ai_solutions=?, keywords=?, children_slugs=?,
			related_slugs=?, linked_epic_ids=?, tags=?, usage_count=?, success_count=?, updated_at=?,
			embedding=COALESCE(?, embedding)
		WHERE slug=?`,
		t.Title, marshalJSON(t.AIUseCase), t.AISolutions, marshalJSON(t.Keywords), marshalJSON(t.ChildrenSlugs),
		marshalJSON(t.RelatedSlugs), marshalJSON(t.LinkedEpicIDs), marshalJSON(t.Tags), t.UsageCount, t.SuccessCount,
		now, nullableVector(newVec), t.Slug,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.NotFound, "troubleshoot item %q not found in namespace %q", t.Slug, s.Namespace)
	}
	if newVec != nil {
		s.vw.Upsert("troubleshoot", t.ID, newVec)
	}
	return s.kw.Upsert("troubleshoot", t.ID, t.SearchableText())
}

// RecordTroubleshootUse increments usage_count and, when successful,
// success_count. These counters change only through this operation,
// never through a regular update.
func (s *Store) RecordTroubleshootUse(ctx context.Context, slug string, success bool) error {
	query := `UPDATE troubleshoot_memory SET usage_count = usage_count + 1, updated_at = ?`
	if success {
		query += `, success_count = success_count + 1`
	}
	query += ` WHERE slug = ?`
	res, err := s.execWrite(ctx, "recording troubleshoot use", query, nowISO(), slug)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.NotFound, "troubleshoot item %q not found in namespace %q", slug, s.Namespace)
	}
	return nil
}

// DeleteTroubleshootItem removes a Troubleshoot item by slug.
func (s *Store) DeleteTroubleshootItem(ctx context.Context, slug string) error {
	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM troubleshoot_memory WHERE slug = ?`, slug).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Newf(apperr.NotFound, "troubleshoot item %q not found in namespace %q", slug, s.Namespace)
		}
		return apperr.Wrap(apperr.StoreError, "looking up troubleshoot item", err)
	}
	if _, err := s.execWrite(ctx, "deleting troubleshoot item", `DELETE FROM troubleshoot_memory WHERE slug = ?`, slug); err != nil {
		return err
	}
	s.vw.Delete("troubleshoot", id)
	_ = s.kw.Delete("troubleshoot", id)
	return nil
}

// ListTroubleshootItems returns one page of Troubleshoot items, most
// recently updated first, starting at offset. A limit <= 0 or > 200 is
// treated as 200.
func (s *Store) ListTroubleshootItems(ctx context.Context, limit, offset int) ([]*model.TroubleshootItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, title, ai_use_case, ai_solutions, keywords, children_slugs, related_slugs,
			linked_epic_ids, tags, usage_count, success_count, created_at, updated_at
		FROM troubleshoot_memory ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing troubleshoot items", err)
	}
	defer rows.Close()
	var out []*model.TroubleshootItem
	for rows.Next() {
		t, err := scanTroubleshootItem(rows, s.Namespace, "")
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces SQLite's error text directly; there is
	// no typed sentinel for "UNIQUE constraint failed", so the message
	// text is matched instead.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") && strings.Contains(msg, "constraint")
}
