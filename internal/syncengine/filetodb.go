package syncengine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vuxtra/jivemcp/internal/store"
)

// fileToDB imports every recognized workspace file into the store,
// skipping files whose content hash matches the last sync, and removes
// store items whose backing file has been deleted, detecting
// adds/modifies/deletes by content hash.
func (e *Engine) fileToDB(ctx context.Context, s *store.Store, workspaceDir string) (*Summary, error) {
	refs, err := listWorkspaceFiles(workspaceDir)
	if err != nil {
		return nil, err
	}
	summary := &Summary{}
	seen := make(map[string]bool, len(refs))

	for _, ref := range refs {
		path := filepath.Join(workspaceDir, ref.filename)
		seen[ref.filename] = true

		content, err := os.ReadFile(path)
		if err != nil {
			// Per-file failures don't abort the run.
			continue
		}
		hash := hashContent(content)

		prior, _ := s.GetSyncFile(ctx, ref.filename)
		if prior != nil && prior.ContentHash == hash {
			summary.Unchanged = append(summary.Unchanged, ref.filename)
			continue
		}

		if err := s.WithWriteLock(func() error { return e.importOne(ctx, s, ref, content) }); err != nil {
			continue
		}

		if prior == nil {
			summary.Created = append(summary.Created, ref.filename)
		} else {
			summary.Updated = append(summary.Updated, ref.filename)
		}
		_ = s.PutSyncFile(ctx, store.SyncFileRecord{Path: ref.filename, EntityID: ref.slug, ContentHash: hash, SyncedAt: nowISO()})
	}

	tracked, err := s.ListSyncFiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tracked {
		if seen[t.Path] {
			continue
		}
		ref, ok := parseFilename(t.Path)
		if !ok {
			continue
		}
		_ = s.WithWriteLock(func() error { return deleteEntity(ctx, s, ref) })
		_ = s.DeleteSyncFile(ctx, t.Path)
		summary.Deleted = append(summary.Deleted, t.Path)
	}

	return summary, nil
}

func deleteEntity(ctx context.Context, s *store.Store, ref entityRef) error {
	if ref.kind == "architecture" {
		return s.DeleteArchitectureItem(ctx, ref.slug)
	}
	return s.DeleteTroubleshootItem(ctx, ref.slug)
}
