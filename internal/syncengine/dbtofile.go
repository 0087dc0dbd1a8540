package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/vuxtra/jivemcp/internal/markdown"
	"github.com/vuxtra/jivemcp/internal/store"
)

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

const listPageSize = 200

// storeEntityRefs enumerates every Architecture/Troubleshoot item currently
// in the store as entityRefs, paging through ListArchitectureItems and
// ListTroubleshootItems.
func storeEntityRefs(ctx context.Context, s *store.Store) ([]entityRef, error) {
	var refs []entityRef
	for offset := 0; ; offset += listPageSize {
		items, err := s.ListArchitectureItems(ctx, listPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, a := range items {
			refs = append(refs, entityRef{kind: "architecture", slug: a.Slug, filename: markdown.ArchitectureFilename(a.Slug)})
		}
		if len(items) < listPageSize {
			break
		}
	}
	for offset := 0; ; offset += listPageSize {
		items, err := s.ListTroubleshootItems(ctx, listPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, t := range items {
			refs = append(refs, entityRef{kind: "troubleshoot", slug: t.Slug, filename: markdown.TroubleshootFilename(t.Slug)})
		}
		if len(items) < listPageSize {
			break
		}
	}
	return refs, nil
}

// dbToFile writes every store item out to the workspace as Markdown,
// skipping files whose rendered content hash already matches the last
// sync. It deliberately never deletes a workspace file that has no
// corresponding store item; no sync direction removes workspace files.
func (e *Engine) dbToFile(ctx context.Context, s *store.Store, workspaceDir string) (*Summary, error) {
	refs, err := storeEntityRefs(ctx, s)
	if err != nil {
		return nil, err
	}
	summary := &Summary{}

	for _, ref := range refs {
		content, err := e.encodeOne(ref, s, ctx)
		if err != nil {
			continue
		}
		hash := hashContent([]byte(content))

		prior, _ := s.GetSyncFile(ctx, ref.filename)
		if prior != nil && prior.ContentHash == hash {
			summary.Unchanged = append(summary.Unchanged, ref.filename)
			continue
		}

		path := filepath.Join(workspaceDir, ref.filename)
		_, statErr := os.Stat(path)
		existed := statErr == nil

		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			continue
		}
		if existed {
			summary.Updated = append(summary.Updated, ref.filename)
		} else {
			summary.Created = append(summary.Created, ref.filename)
		}
		_ = s.PutSyncFile(ctx, store.SyncFileRecord{Path: ref.filename, EntityID: ref.slug, ContentHash: hash, SyncedAt: nowISO()})
	}

	return summary, nil
}
