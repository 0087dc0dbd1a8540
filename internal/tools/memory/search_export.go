package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/markdown"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/search"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

func (t *Tool) search(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	if p.Query == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "query is required"))
	}
	engine := search.New(t.svc.Embed)
	hits, err := engine.Search(ctx, s, search.Request{
		Query:        p.Query,
		ContentTypes: []string{p.MemoryType},
		Limit:        p.Limit,
	})
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"results": hits})
}

// export renders every memory item and writes the bundle to disk as
// export-{ns}-{ts}/ with a metadata.json manifest, returning the
// directory path alongside the rendered content.
func (t *Tool) export(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	now := time.Now().UTC()
	bundle, err := markdown.ExportAll(ctx, s, s.Namespace, now.Format(time.RFC3339))
	if err != nil {
		return common.Fail(err)
	}
	manifest, err := markdown.MarshalManifest(bundle.Manifest)
	if err != nil {
		return common.Fail(err)
	}

	outputDir := p.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(t.svc.Config.Store.DataDir, "namespaces", s.Namespace, "exports")
	}
	exportDir := filepath.Join(outputDir, fmt.Sprintf("export-%s-%s", s.Namespace, now.Format("20060102-150405")))
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return common.Fail(apperr.Wrap(apperr.IOError, "creating export directory", err))
	}
	for name, content := range bundle.Files {
		if err := os.WriteFile(filepath.Join(exportDir, name), []byte(content), 0o644); err != nil {
			return common.Fail(apperr.Wrap(apperr.IOError, "writing export file", err))
		}
	}
	if err := os.WriteFile(filepath.Join(exportDir, "metadata.json"), manifest, 0o644); err != nil {
		return common.Fail(apperr.Wrap(apperr.IOError, "writing export manifest", err))
	}

	return common.Success(map[string]any{
		"export_dir": exportDir,
		"manifest":   json.RawMessage(manifest),
		"files":      bundle.Files,
	})
}

func (t *Tool) importOne(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	if p.Directory != "" {
		return t.importDirectory(ctx, s, p)
	}
	if p.Content == "" || p.Filename == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "content and filename (or directory) are required"))
	}
	if p.MemoryType != "architecture" && p.MemoryType != "troubleshoot" {
		return common.Fail(apperr.Newf(apperr.ValidationError, "memory_type must be architecture or troubleshoot, got %q", p.MemoryType))
	}

	mode := markdown.ImportCreateOrUpdate
	if p.ImportMode != "" {
		mode = markdown.ImportMode(p.ImportMode)
	}

	var warnings []string
	if err := s.WithWriteLock(func() error {
		var err error
		if p.MemoryType == "architecture" {
			warnings, err = markdown.ImportArchitecture(ctx, s, t.svc.Embed, p.Content, p.Filename, mode)
		} else {
			warnings, err = markdown.ImportTroubleshoot(ctx, s, t.svc.Embed, p.Content, p.Filename, mode)
		}
		return err
	}); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"warnings": warnings})
}

// importDirectory imports every recognized memory document in a bundle
// directory (typically a previous export). Each file is applied
// independently: one file's fatal parse error is reported per-file and
// does not abort the rest of the batch.
func (t *Tool) importDirectory(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	mode := markdown.ImportCreateOrUpdate
	if p.ImportMode != "" {
		mode = markdown.ImportMode(p.ImportMode)
	}

	entries, err := os.ReadDir(p.Directory)
	if err != nil {
		return common.Fail(apperr.Wrap(apperr.IOError, "reading import directory", err))
	}

	imported := make([]string, 0, len(entries))
	warnings := map[string][]string{}
	failures := map[string]string{}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		if !strings.HasPrefix(name, "architecture_") && !strings.HasPrefix(name, "troubleshoot_") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(p.Directory, name))
		if err != nil {
			failures[name] = err.Error()
			continue
		}
		var w []string
		importErr := s.WithWriteLock(func() error {
			var err error
			if strings.HasPrefix(name, "architecture_") {
				w, err = markdown.ImportArchitecture(ctx, s, t.svc.Embed, string(content), name, mode)
			} else {
				w, err = markdown.ImportTroubleshoot(ctx, s, t.svc.Embed, string(content), name, mode)
			}
			return err
		})
		if importErr != nil {
			failures[name] = importErr.Error()
			continue
		}
		imported = append(imported, name)
		if len(w) > 0 {
			warnings[name] = w
		}
	}

	return common.Success(map[string]any{
		"imported": imported,
		"warnings": warnings,
		"failures": failures,
	})
}
