package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxtra/jivemcp/internal/embedding"
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

func TestArchitectureRoundTrip(t *testing.T) {
	a := &model.ArchitectureItem{
		Slug:           "auth-service",
		Title:          "Auth Service",
		AIRequirements: "Handles login and session issuance.",
		AIWhenToUse:    []string{"New login flows", "Session refresh work"},
		Keywords:       []string{"auth", "jwt"},
		ChildrenSlugs:  []string{"token-cache"},
		RelatedSlugs:   []string{"user-service"},
		LinkedEpicIDs:  []string{"epic-1"},
		Tags:           []string{"backend"},
	}
	content, err := EncodeArchitecture(a)
	require.NoError(t, err)

	decoded, warnings, err := DecodeArchitecture(content, ArchitectureFilename("auth-service"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, a.Title, decoded.Title)
	assert.Equal(t, a.AIRequirements, decoded.AIRequirements)
	assert.ElementsMatch(t, a.AIWhenToUse, decoded.AIWhenToUse)
	assert.ElementsMatch(t, a.Keywords, decoded.Keywords)
	assert.ElementsMatch(t, a.ChildrenSlugs, decoded.ChildrenSlugs)
	assert.ElementsMatch(t, a.RelatedSlugs, decoded.RelatedSlugs)
	assert.ElementsMatch(t, a.Tags, decoded.Tags)
}

func TestTroubleshootRoundTrip(t *testing.T) {
	tr := &model.TroubleshootItem{
		Slug:        "timeout-errors",
		Title:       "Diagnosing Timeout Errors",
		AIUseCase:   []string{"Requests hang under load"},
		AISolutions: "Increase the client timeout and check upstream latency.",
		Keywords:    []string{"timeout", "latency"},
		Tags:        []string{"ops"},
		UsageCount:  3,
		SuccessCount: 2,
	}
	content, err := EncodeTroubleshoot(tr)
	require.NoError(t, err)

	decoded, warnings, err := DecodeTroubleshoot(content, TroubleshootFilename("timeout-errors"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, tr.Title, decoded.Title)
	assert.Equal(t, tr.UsageCount, decoded.UsageCount)
	assert.Equal(t, tr.SuccessCount, decoded.SuccessCount)
}

func TestDecodeArchitectureRejectsFilenameMismatch(t *testing.T) {
	a := &model.ArchitectureItem{Slug: "svc-a", Title: "Svc A", AIRequirements: "req"}
	content, err := EncodeArchitecture(a)
	require.NoError(t, err)
	_, _, err = DecodeArchitecture(content, "architecture_svc-b.md")
	require.Error(t, err)
}

func TestDecodeArchitectureRejectsMissingFrontMatter(t *testing.T) {
	_, _, err := DecodeArchitecture("# No front matter\n\nbody", "")
	require.Error(t, err)
}

func TestImportArchitectureCreateOnlyRejectsDuplicate(t *testing.T) {
	s := openTestStore(t)
	emb := embedding.New()
	ctx := context.Background()

	a := &model.ArchitectureItem{Slug: "svc-a", Title: "Svc A", AIRequirements: "req"}
	content, err := EncodeArchitecture(a)
	require.NoError(t, err)

	_, err = ImportArchitecture(ctx, s, emb, content, "", ImportCreateOnly)
	require.NoError(t, err)

	_, err = ImportArchitecture(ctx, s, emb, content, "", ImportCreateOnly)
	require.Error(t, err)
}

func TestImportArchitectureCreateOrUpdateUpdatesExisting(t *testing.T) {
	s := openTestStore(t)
	emb := embedding.New()
	ctx := context.Background()

	a := &model.ArchitectureItem{Slug: "svc-a", Title: "Svc A", AIRequirements: "req v1"}
	content, err := EncodeArchitecture(a)
	require.NoError(t, err)
	_, err = ImportArchitecture(ctx, s, emb, content, "", ImportCreateOrUpdate)
	require.NoError(t, err)

	a.AIRequirements = "req v2"
	content2, err := EncodeArchitecture(a)
	require.NoError(t, err)
	_, err = ImportArchitecture(ctx, s, emb, content2, "", ImportCreateOrUpdate)
	require.NoError(t, err)

	got, err := s.GetArchitectureItemBySlug(ctx, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, "req v2", got.AIRequirements)
}

func TestExportAllProducesManifestEntryPerItem(t *testing.T) {
	s := openTestStore(t)
	emb := embedding.New()
	ctx := context.Background()

	a := &model.ArchitectureItem{Slug: "svc-a", Title: "Svc A", AIRequirements: "req"}
	vec, err := emb.Embed(a.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutArchitectureItem(ctx, a, vec))

	bundle, err := ExportAll(ctx, s, "test-ns", "2026-07-31T00-00-00Z")
	require.NoError(t, err)
	require.Len(t, bundle.Manifest.Files, 1)
	assert.Equal(t, "architecture", bundle.Manifest.Files[0].Kind)
	assert.Contains(t, bundle.Files, ArchitectureFilename("svc-a"))
}
