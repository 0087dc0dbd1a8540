package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/vuxtra/jivemcp/internal/markdown"
	"github.com/vuxtra/jivemcp/internal/store"
)

// bidirectional reconciles the workspace directory and the store by
// union of both sides' entityRefs. A ref present on only one side is
// treated as a create on the other. A ref present on both sides is
// resolved by comparing the file's last_updated_on front-matter
// timestamp against the store item's updated_at: the newer side wins;
// on an exact tie the store wins.
func (e *Engine) bidirectional(ctx context.Context, s *store.Store, workspaceDir string) (*Summary, error) {
	fileRefs, err := listWorkspaceFiles(workspaceDir)
	if err != nil {
		return nil, err
	}
	storeRefs, err := storeEntityRefs(ctx, s)
	if err != nil {
		return nil, err
	}

	byFile := make(map[string]entityRef, len(fileRefs))
	for _, r := range fileRefs {
		byFile[r.filename] = r
	}
	byStore := make(map[string]entityRef, len(storeRefs))
	for _, r := range storeRefs {
		byStore[r.filename] = r
	}

	summary := &Summary{}

	for filename, ref := range byFile {
		if _, inStore := byStore[filename]; inStore {
			continue
		}
		if err := e.applyFileToStore(ctx, s, workspaceDir, ref); err == nil {
			summary.Created = append(summary.Created, filename)
		}
	}

	for filename, ref := range byStore {
		if _, inFile := byFile[filename]; inFile {
			continue
		}
		if err := e.applyStoreToFile(ctx, s, workspaceDir, ref); err == nil {
			summary.Created = append(summary.Created, filename)
		}
	}

	for filename, ref := range byFile {
		if _, inStore := byStore[filename]; !inStore {
			continue
		}
		resolved, err := e.reconcileOne(ctx, s, workspaceDir, ref)
		if err != nil {
			continue
		}
		switch resolved {
		case "unchanged":
			summary.Unchanged = append(summary.Unchanged, filename)
		case "file":
			summary.Updated = append(summary.Updated, filename)
			summary.Conflicts = append(summary.Conflicts, Conflict{Path: filename, Resolved: "file", Reason: "file is newer"})
		case "store":
			summary.Updated = append(summary.Updated, filename)
			summary.Conflicts = append(summary.Conflicts, Conflict{Path: filename, Resolved: "store", Reason: "store is newer or tied"})
		}
	}

	return summary, nil
}

func (e *Engine) applyFileToStore(ctx context.Context, s *store.Store, workspaceDir string, ref entityRef) error {
	content, err := os.ReadFile(filepath.Join(workspaceDir, ref.filename))
	if err != nil {
		return err
	}
	if err := s.WithWriteLock(func() error { return e.importOne(ctx, s, ref, content) }); err != nil {
		return err
	}
	return s.PutSyncFile(ctx, store.SyncFileRecord{Path: ref.filename, EntityID: ref.slug, ContentHash: hashContent(content), SyncedAt: nowISO()})
}

func (e *Engine) applyStoreToFile(ctx context.Context, s *store.Store, workspaceDir string, ref entityRef) error {
	content, err := e.encodeOne(ref, s, ctx)
	if err != nil {
		return err
	}
	path := filepath.Join(workspaceDir, ref.filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	return s.PutSyncFile(ctx, store.SyncFileRecord{Path: ref.filename, EntityID: ref.slug, ContentHash: hashContent([]byte(content)), SyncedAt: nowISO()})
}

// reconcileOne handles a ref present on both sides: "unchanged" if the
// file content hash still matches the last sync record, otherwise
// resolves by recency and applies the winning side, returning which
// side won ("file" or "store").
func (e *Engine) reconcileOne(ctx context.Context, s *store.Store, workspaceDir string, ref entityRef) (string, error) {
	path := filepath.Join(workspaceDir, ref.filename)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	hash := hashContent(content)

	prior, _ := s.GetSyncFile(ctx, ref.filename)
	if prior != nil && prior.ContentHash == hash {
		return "unchanged", nil
	}

	fileUpdatedAt, err := markdown.LastUpdatedOn(string(content))
	if err != nil {
		fileUpdatedAt = time.Time{}
	}

	storeUpdatedAt, err := e.storeUpdatedAt(ctx, s, ref)
	if err != nil {
		return "", err
	}

	if fileUpdatedAt.After(storeUpdatedAt) {
		if err := e.applyFileToStore(ctx, s, workspaceDir, ref); err != nil {
			return "", err
		}
		return "file", nil
	}

	if err := e.applyStoreToFile(ctx, s, workspaceDir, ref); err != nil {
		return "", err
	}
	return "store", nil
}

func (e *Engine) storeUpdatedAt(ctx context.Context, s *store.Store, ref entityRef) (time.Time, error) {
	if ref.kind == "architecture" {
		a, err := s.GetArchitectureItemBySlug(ctx, ref.slug)
		if err != nil {
			return time.Time{}, err
		}
		return a.UpdatedAt, nil
	}
	t, err := s.GetTroubleshootItemBySlug(ctx, ref.slug)
	if err != nil {
		return time.Time{}, err
	}
	return t.UpdatedAt, nil
}
