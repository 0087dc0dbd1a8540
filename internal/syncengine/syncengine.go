// Package syncengine implements jive_sync_data's bidirectional
// file<->store synchronization: it walks a
// configured workspace directory, detects adds/modifies/deletes by
// content hash, resolves bidirectional conflicts by updated_at, and
// applies each file transactionally so one file's failure doesn't abort
// the run. Change detection is bookkept in the store's sync_files
// hash/timestamp table.
package syncengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/embedding"
	"github.com/vuxtra/jivemcp/internal/markdown"
	"github.com/vuxtra/jivemcp/internal/store"
)

// Direction enumerates jive_sync_data's sync directions.
type Direction string

const (
	FileToDB      Direction = "file_to_db"
	DBToFile      Direction = "db_to_file"
	Bidirectional Direction = "bidirectional"
)

const lockRetryInterval = 50 * time.Millisecond

// Summary is the diff report jive_sync_data returns.
type Summary struct {
	Created   []string
	Updated   []string
	Unchanged []string
	Deleted   []string
	Conflicts []Conflict
}

// Conflict records a bidirectional conflict and how it was resolved.
type Conflict struct {
	Path      string
	Resolved  string // "file" or "store"
	Reason    string
}

// Engine runs sync passes against a namespace's store and a workspace
// directory. It holds a shared embedding engine for re-indexing imported
// content.
type Engine struct {
	embed *embedding.Engine
}

// New constructs a sync Engine backed by embed.
func New(embed *embedding.Engine) *Engine {
	return &Engine{embed: embed}
}

// Run executes one sync pass, holding a file lock on the workspace
// directory for the duration of the run; concurrent sync runs would
// otherwise race on the same files.
func (e *Engine) Run(ctx context.Context, s *store.Store, workspaceDir string, direction Direction) (*Summary, error) {
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.IOError, "creating sync workspace directory", err)
	}

	lock := flock.New(filepath.Join(workspaceDir, ".jivemcp-sync.lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, "acquiring sync workspace lock", err)
	}
	if !locked {
		return nil, apperr.New(apperr.Conflict, "another sync run holds the workspace lock")
	}
	defer lock.Unlock()

	switch direction {
	case FileToDB:
		return e.fileToDB(ctx, s, workspaceDir)
	case DBToFile:
		return e.dbToFile(ctx, s, workspaceDir)
	default:
		return e.bidirectional(ctx, s, workspaceDir)
	}
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// entityRef identifies one memory item by kind+slug, derived from its
// filename convention.
type entityRef struct {
	kind, slug, filename string
}

func parseFilename(name string) (entityRef, bool) {
	switch {
	case strings.HasPrefix(name, "architecture_") && strings.HasSuffix(name, ".md"):
		slug := strings.TrimSuffix(strings.TrimPrefix(name, "architecture_"), ".md")
		return entityRef{kind: "architecture", slug: slug, filename: name}, true
	case strings.HasPrefix(name, "troubleshoot_") && strings.HasSuffix(name, ".md"):
		slug := strings.TrimSuffix(strings.TrimPrefix(name, "troubleshoot_"), ".md")
		return entityRef{kind: "troubleshoot", slug: slug, filename: name}, true
	default:
		return entityRef{}, false
	}
}

func listWorkspaceFiles(dir string) ([]entityRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, "reading sync workspace directory", err)
	}
	var refs []entityRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ref, ok := parseFilename(entry.Name()); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (e *Engine) importOne(ctx context.Context, s *store.Store, ref entityRef, content []byte) error {
	if ref.kind == "architecture" {
		_, err := markdown.ImportArchitecture(ctx, s, e.embed, string(content), ref.filename, markdown.ImportCreateOrUpdate)
		return err
	}
	_, err := markdown.ImportTroubleshoot(ctx, s, e.embed, string(content), ref.filename, markdown.ImportCreateOrUpdate)
	return err
}

func (e *Engine) encodeOne(ref entityRef, s *store.Store, ctx context.Context) (string, error) {
	if ref.kind == "architecture" {
		a, err := s.GetArchitectureItemBySlug(ctx, ref.slug)
		if err != nil {
			return "", err
		}
		return markdown.EncodeArchitecture(a)
	}
	t, err := s.GetTroubleshootItemBySlug(ctx, ref.slug)
	if err != nil {
		return "", err
	}
	return markdown.EncodeTroubleshoot(t)
}
