package markdown

import (
	"context"
	"encoding/json"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/embedding"
	"github.com/vuxtra/jivemcp/internal/store"
)

// ImportMode enumerates jive_memory's import sub-action modes.
type ImportMode string

const (
	ImportCreateOnly     ImportMode = "create_only"
	ImportUpdateOnly     ImportMode = "update_only"
	ImportCreateOrUpdate ImportMode = "create_or_update"
	ImportReplace        ImportMode = "replace"
)

// ManifestEntry is one file listed in a batch export's metadata.json.
type ManifestEntry struct {
	Kind     string `json:"kind"`
	Slug     string `json:"slug"`
	Filename string `json:"filename"`
}

// ExportManifest is the metadata.json manifest written alongside a
// batch export bundle.
type ExportManifest struct {
	Namespace  string          `json:"namespace"`
	ExportedAt string          `json:"exported_at"`
	Files      []ManifestEntry `json:"files"`
}

// ExportBundle is the in-memory result of a batch export: Markdown
// document content keyed by filename, plus the manifest. Writing these to
// disk under export-{ns}-{ts}/ is the caller's responsibility; the
// filesystem mechanics belong to the tool/sync layer, not this codec.
type ExportBundle struct {
	Manifest ExportManifest
	Files    map[string]string // filename -> document content
}

// ExportAll renders every Architecture and Troubleshoot item in s into an
// ExportBundle.
func ExportAll(ctx context.Context, s *store.Store, namespace, exportedAt string) (*ExportBundle, error) {
	bundle := &ExportBundle{
		Manifest: ExportManifest{Namespace: namespace, ExportedAt: exportedAt},
		Files:    make(map[string]string),
	}

	arch, err := s.ListArchitectureItems(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, a := range arch {
		content, err := EncodeArchitecture(a)
		if err != nil {
			return nil, err
		}
		name := ArchitectureFilename(a.Slug)
		bundle.Files[name] = content
		bundle.Manifest.Files = append(bundle.Manifest.Files, ManifestEntry{Kind: "architecture", Slug: a.Slug, Filename: name})
	}

	trouble, err := s.ListTroubleshootItems(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, t := range trouble {
		content, err := EncodeTroubleshoot(t)
		if err != nil {
			return nil, err
		}
		name := TroubleshootFilename(t.Slug)
		bundle.Files[name] = content
		bundle.Manifest.Files = append(bundle.Manifest.Files, ManifestEntry{Kind: "troubleshoot", Slug: t.Slug, Filename: name})
	}

	return bundle, nil
}

// MarshalManifest renders an ExportManifest as the metadata.json payload.
func MarshalManifest(m ExportManifest) ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "marshaling export manifest", err)
	}
	return b, nil
}

// ImportArchitecture decodes content and applies it to s under mode,
// returning any non-fatal warnings. Embeddings are recomputed from the
// decoded item's searchable text via emb.
func ImportArchitecture(ctx context.Context, s *store.Store, emb *embedding.Engine, content, filename string, mode ImportMode) ([]string, error) {
	a, warnings, err := DecodeArchitecture(content, filename)
	if err != nil {
		return nil, err
	}

	existing, getErr := s.GetArchitectureItemBySlug(ctx, a.Slug)
	exists := getErr == nil

	vec, err := emb.Embed(a.SearchableText())
	if err != nil {
		return nil, apperr.Wrap(apperr.EmbeddingError, "embedding imported architecture item", err)
	}

	switch mode {
	case ImportCreateOnly:
		if exists {
			return nil, apperr.Newf(apperr.SlugDuplicate, "architecture slug %q already exists", a.Slug)
		}
		return warnings, s.PutArchitectureItem(ctx, a, vec)
	case ImportUpdateOnly:
		if !exists {
			return nil, apperr.Newf(apperr.NotFound, "architecture item %q not found for update", a.Slug)
		}
		a.ID = existing.ID
		return warnings, s.UpdateArchitectureItem(ctx, a, vec)
	case ImportReplace:
		if exists {
			if err := s.DeleteArchitectureItem(ctx, a.Slug); err != nil {
				return nil, err
			}
		}
		return warnings, s.PutArchitectureItem(ctx, a, vec)
	default: // ImportCreateOrUpdate
		if exists {
			a.ID = existing.ID
			return warnings, s.UpdateArchitectureItem(ctx, a, vec)
		}
		return warnings, s.PutArchitectureItem(ctx, a, vec)
	}
}

// ImportTroubleshoot is ImportArchitecture's Troubleshoot counterpart.
func ImportTroubleshoot(ctx context.Context, s *store.Store, emb *embedding.Engine, content, filename string, mode ImportMode) ([]string, error) {
	t, warnings, err := DecodeTroubleshoot(content, filename)
	if err != nil {
		return nil, err
	}

	existing, getErr := s.GetTroubleshootItemBySlug(ctx, t.Slug)
	exists := getErr == nil

	vec, err := emb.Embed(t.SearchableText())
	if err != nil {
		return nil, apperr.Wrap(apperr.EmbeddingError, "embedding imported troubleshoot item", err)
	}

	switch mode {
	case ImportCreateOnly:
		if exists {
			return nil, apperr.Newf(apperr.SlugDuplicate, "troubleshoot slug %q already exists", t.Slug)
		}
		return warnings, s.PutTroubleshootItem(ctx, t, vec)
	case ImportUpdateOnly:
		if !exists {
			return nil, apperr.Newf(apperr.NotFound, "troubleshoot item %q not found for update", t.Slug)
		}
		t.ID = existing.ID
		t.UsageCount, t.SuccessCount = existing.UsageCount, existing.SuccessCount
		return warnings, s.UpdateTroubleshootItem(ctx, t, vec)
	case ImportReplace:
		if exists {
			if err := s.DeleteTroubleshootItem(ctx, t.Slug); err != nil {
				return nil, err
			}
		}
		return warnings, s.PutTroubleshootItem(ctx, t, vec)
	default: // ImportCreateOrUpdate
		if exists {
			t.ID = existing.ID
			t.UsageCount, t.SuccessCount = existing.UsageCount, existing.SuccessCount
			return warnings, s.UpdateTroubleshootItem(ctx, t, vec)
		}
		return warnings, s.PutTroubleshootItem(ctx, t, vec)
	}
}
