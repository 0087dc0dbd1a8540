package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxtra/jivemcp/internal/embedding"
	"github.com/vuxtra/jivemcp/internal/markdown"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open("test-ns", dir+"/store.db", dir+"/bleve.idx")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFileToDBImportsNewFile(t *testing.T) {
	s := openTestStore(t)
	e := New(embedding.New())
	ctx := context.Background()
	workDir := t.TempDir()

	a := &model.ArchitectureItem{Slug: "svc-a", Title: "Svc A", AIRequirements: "req"}
	content, err := markdown.EncodeArchitecture(a)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, markdown.ArchitectureFilename("svc-a")), []byte(content), 0o644))

	summary, err := e.Run(ctx, s, workDir, FileToDB)
	require.NoError(t, err)
	assert.Contains(t, summary.Created, markdown.ArchitectureFilename("svc-a"))

	got, err := s.GetArchitectureItemBySlug(ctx, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, "Svc A", got.Title)
}

func TestFileToDBSecondRunIsUnchanged(t *testing.T) {
	s := openTestStore(t)
	e := New(embedding.New())
	ctx := context.Background()
	workDir := t.TempDir()

	a := &model.ArchitectureItem{Slug: "svc-a", Title: "Svc A", AIRequirements: "req"}
	content, err := markdown.EncodeArchitecture(a)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, markdown.ArchitectureFilename("svc-a")), []byte(content), 0o644))

	_, err = e.Run(ctx, s, workDir, FileToDB)
	require.NoError(t, err)

	summary, err := e.Run(ctx, s, workDir, FileToDB)
	require.NoError(t, err)
	assert.Contains(t, summary.Unchanged, markdown.ArchitectureFilename("svc-a"))
	assert.Empty(t, summary.Created)
	assert.Empty(t, summary.Updated)
}

func TestFileToDBDeletesStoreItemWhenFileRemoved(t *testing.T) {
	s := openTestStore(t)
	e := New(embedding.New())
	ctx := context.Background()
	workDir := t.TempDir()

	a := &model.ArchitectureItem{Slug: "svc-a", Title: "Svc A", AIRequirements: "req"}
	content, err := markdown.EncodeArchitecture(a)
	require.NoError(t, err)
	path := filepath.Join(workDir, markdown.ArchitectureFilename("svc-a"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err = e.Run(ctx, s, workDir, FileToDB)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	summary, err := e.Run(ctx, s, workDir, FileToDB)
	require.NoError(t, err)
	assert.Contains(t, summary.Deleted, markdown.ArchitectureFilename("svc-a"))

	_, err = s.GetArchitectureItemBySlug(ctx, "svc-a")
	assert.Error(t, err)
}

func TestDBToFileWritesNewStoreItem(t *testing.T) {
	s := openTestStore(t)
	emb := embedding.New()
	e := New(emb)
	ctx := context.Background()
	workDir := t.TempDir()

	a := &model.ArchitectureItem{Slug: "svc-b", Title: "Svc B", AIRequirements: "req"}
	vec, err := emb.Embed(a.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutArchitectureItem(ctx, a, vec))

	summary, err := e.Run(ctx, s, workDir, DBToFile)
	require.NoError(t, err)
	assert.Contains(t, summary.Created, markdown.ArchitectureFilename("svc-b"))

	data, err := os.ReadFile(filepath.Join(workDir, markdown.ArchitectureFilename("svc-b")))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Svc B")
}

func TestBidirectionalCreatesBothDirections(t *testing.T) {
	s := openTestStore(t)
	emb := embedding.New()
	e := New(emb)
	ctx := context.Background()
	workDir := t.TempDir()

	storeOnly := &model.ArchitectureItem{Slug: "store-only", Title: "Store Only", AIRequirements: "req"}
	vec, err := emb.Embed(storeOnly.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutArchitectureItem(ctx, storeOnly, vec))

	fileOnly := &model.ArchitectureItem{Slug: "file-only", Title: "File Only", AIRequirements: "req"}
	content, err := markdown.EncodeArchitecture(fileOnly)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, markdown.ArchitectureFilename("file-only")), []byte(content), 0o644))

	summary, err := e.Run(ctx, s, workDir, Bidirectional)
	require.NoError(t, err)
	assert.Contains(t, summary.Created, markdown.ArchitectureFilename("store-only"))
	assert.Contains(t, summary.Created, markdown.ArchitectureFilename("file-only"))

	_, err = s.GetArchitectureItemBySlug(ctx, "file-only")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(workDir, markdown.ArchitectureFilename("store-only")))
	require.NoError(t, err)
}
