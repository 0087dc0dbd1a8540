package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vuxtra/jivemcp/internal/apperr"
)

// SyncFileRecord is one row of the sync_files change-detection table:
// the last content hash the sync engine saw for a workspace file.
type SyncFileRecord struct {
	Path        string
	EntityID    string
	ContentHash string
	SyncedAt    string
}

// GetSyncFile fetches the last known record for path, or nil if path has
// never been synced.
func (s *Store) GetSyncFile(ctx context.Context, path string) (*SyncFileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT path, entity_id, content_hash, synced_at FROM sync_files WHERE path = ?`, path)
	var r SyncFileRecord
	if err := row.Scan(&r.Path, &r.EntityID, &r.ContentHash, &r.SyncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.StoreError, "fetching sync file record", err)
	}
	return &r, nil
}

// PutSyncFile upserts path's change-detection record.
func (s *Store) PutSyncFile(ctx context.Context, r SyncFileRecord) error {
	_, err := s.execWrite(ctx, "upserting sync file record", `
		INSERT INTO sync_files (path, entity_id, content_hash, synced_at) VALUES (?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET entity_id=excluded.entity_id, content_hash=excluded.content_hash, synced_at=excluded.synced_at`,
		r.Path, r.EntityID, r.ContentHash, r.SyncedAt)
	return err
}

// DeleteSyncFile removes path's change-detection record.
func (s *Store) DeleteSyncFile(ctx context.Context, path string) error {
	if _, err := s.execWrite(ctx, "deleting sync file record", `DELETE FROM sync_files WHERE path = ?`, path); err != nil {
		return err
	}
	return nil
}

// ListSyncFiles returns every tracked file's change-detection record.
func (s *Store) ListSyncFiles(ctx context.Context) ([]SyncFileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, entity_id, content_hash, synced_at FROM sync_files`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "listing sync file records", err)
	}
	defer rows.Close()
	var out []SyncFileRecord
	for rows.Next() {
		var r SyncFileRecord
		if err := rows.Scan(&r.Path, &r.EntityID, &r.ContentHash, &r.SyncedAt); err != nil {
			return nil, apperr.Wrap(apperr.StoreError, "scanning sync file record", err)
		}
		out = append(out, r)
	}
	return out, nil
}
