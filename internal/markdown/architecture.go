package markdown

import (
	"fmt"
	"strings"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/model"
)

// ArchitectureFilename returns the canonical filename for an
// Architecture item.
func ArchitectureFilename(slug string) string { return "architecture_" + slug + ".md" }

// EncodeArchitecture renders a into its Markdown-with-front-matter form.
func EncodeArchitecture(a *model.ArchitectureItem) (string, error) {
	fm := frontMatter{
		Type:          "architecture",
		Slug:          a.Slug,
		Version:       1,
		CreatedOn:     formatTime(a.CreatedAt),
		LastUpdatedOn: formatTime(a.UpdatedAt),
	}
	header, err := renderFrontMatter(fm)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "\n# %s\n\n", a.Title)

	b.WriteString("## When to Use\n")
	for _, item := range a.AIWhenToUse {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	b.WriteString("\n## Keywords\n")
	for i, k := range a.Keywords {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "`%s`", k)
	}
	b.WriteString("\n\n## Requirements\n")
	b.WriteString(a.AIRequirements)
	b.WriteString("\n\n## Relationships\n")
	if len(a.ChildrenSlugs) > 0 {
		b.WriteString("### Children\n")
		for _, s := range a.ChildrenSlugs {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(a.RelatedSlugs) > 0 {
		b.WriteString("### Related\n")
		for _, s := range a.RelatedSlugs {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	b.WriteString("\n## Epic Links\n")
	for _, e := range a.LinkedEpicIDs {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	b.WriteString("\n## Tags\n")
	for _, t := range a.Tags {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// DecodeArchitecture parses a document into an ArchitectureItem. filename,
// if non-empty, is checked against the front matter slug; a mismatch is
// fatal. Non-fatal issues (missing
// optional fields, dangling relationship slugs are caller-checked against
// the store) are returned as warnings.
func DecodeArchitecture(content, filename string) (*model.ArchitectureItem, []string, error) {
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, nil, err
	}
	if fm.Type != "architecture" {
		return nil, nil, apperr.Newf(apperr.ValidationError, "front matter type %q is not 'architecture'", fm.Type)
	}
	if fm.Slug == "" {
		return nil, nil, apperr.New(apperr.ValidationError, "front matter missing required field 'slug'")
	}
	if filename != "" && filename != ArchitectureFilename(fm.Slug) {
		return nil, nil, apperr.Newf(apperr.ValidationError, "filename %q does not match slug %q", filename, fm.Slug)
	}

	title, sections := parseBody(body)
	if title == "" {
		return nil, nil, apperr.New(apperr.ValidationError, "document missing required H1 title")
	}

	var warnings []string
	when, ok := findSection(sections, "When to Use")
	if !ok {
		warnings = append(warnings, "missing optional section 'When to Use'")
	}
	keywords, ok := findSection(sections, "Keywords")
	if !ok {
		warnings = append(warnings, "missing optional section 'Keywords'")
	}
	requirements, ok := findSection(sections, "Requirements")
	if !ok {
		return nil, nil, apperr.New(apperr.ValidationError, "document missing required section 'Requirements'")
	}
	relationships, _ := findSection(sections, "Relationships")
	epicLinks, _ := findSection(sections, "Epic Links")
	tags, _ := findSection(sections, "Tags")

	a := &model.ArchitectureItem{
		Slug:           fm.Slug,
		Title:          title,
		AIRequirements: requirements.text(),
		AIWhenToUse:    when.bulletList(),
		Keywords:       keywords.inlineCodeTokens(),
		ChildrenSlugs:  h3Subsection(relationships.lines, "Children"),
		RelatedSlugs:   h3Subsection(relationships.lines, "Related"),
		LinkedEpicIDs:  epicLinks.bulletList(),
		Tags:           tags.bulletList(),
		CreatedAt:      parseTime(fm.CreatedOn),
		UpdatedAt:      parseTime(fm.LastUpdatedOn),
	}
	return a, warnings, nil
}
