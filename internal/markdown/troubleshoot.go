package markdown

import (
	"fmt"
	"strings"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/model"
)

// TroubleshootFilename returns the canonical filename for a
// Troubleshoot item.
func TroubleshootFilename(slug string) string { return "troubleshoot_" + slug + ".md" }

// EncodeTroubleshoot renders t into its Markdown-with-front-matter form.
func EncodeTroubleshoot(t *model.TroubleshootItem) (string, error) {
	usage, success := t.UsageCount, t.SuccessCount
	fm := frontMatter{
		Type:          "troubleshoot",
		Slug:          t.Slug,
		Version:       1,
		CreatedOn:     formatTime(t.CreatedAt),
		LastUpdatedOn: formatTime(t.UpdatedAt),
		UsageCount:    &usage,
		SuccessCount:  &success,
	}
	header, err := renderFrontMatter(fm)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "\n# %s\n\n", t.Title)

	b.WriteString("## Problem / Use Cases\n")
	for _, u := range t.AIUseCase {
		fmt.Fprintf(&b, "- %s\n", u)
	}
	b.WriteString("\n## Keywords\n")
	for i, k := range t.Keywords {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "`%s`", k)
	}
	b.WriteString("\n\n## Solutions\n")
	b.WriteString(t.AISolutions)
	b.WriteString("\n\n## Tags\n")
	for _, tag := range t.Tags {
		fmt.Fprintf(&b, "- %s\n", tag)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// DecodeTroubleshoot parses a document into a TroubleshootItem, mirroring
// DecodeArchitecture's fatal/warning split.
func DecodeTroubleshoot(content, filename string) (*model.TroubleshootItem, []string, error) {
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, nil, err
	}
	if fm.Type != "troubleshoot" {
		return nil, nil, apperr.Newf(apperr.ValidationError, "front matter type %q is not 'troubleshoot'", fm.Type)
	}
	if fm.Slug == "" {
		return nil, nil, apperr.New(apperr.ValidationError, "front matter missing required field 'slug'")
	}
	if filename != "" && filename != TroubleshootFilename(fm.Slug) {
		return nil, nil, apperr.Newf(apperr.ValidationError, "filename %q does not match slug %q", filename, fm.Slug)
	}

	title, sections := parseBody(body)
	if title == "" {
		return nil, nil, apperr.New(apperr.ValidationError, "document missing required H1 title")
	}

	var warnings []string
	problem, ok := findSection(sections, "Problem / Use Cases")
	if !ok {
		warnings = append(warnings, "missing optional section 'Problem / Use Cases'")
	}
	keywords, ok := findSection(sections, "Keywords")
	if !ok {
		warnings = append(warnings, "missing optional section 'Keywords'")
	}
	solutions, ok := findSection(sections, "Solutions")
	if !ok {
		return nil, nil, apperr.New(apperr.ValidationError, "document missing required section 'Solutions'")
	}
	tags, _ := findSection(sections, "Tags")

	t := &model.TroubleshootItem{
		Slug:        fm.Slug,
		Title:       title,
		AISolutions: solutions.text(),
		AIUseCase:   problem.bulletList(),
		Keywords:    keywords.inlineCodeTokens(),
		Tags:        tags.bulletList(),
		CreatedAt:   parseTime(fm.CreatedOn),
		UpdatedAt:   parseTime(fm.LastUpdatedOn),
	}
	if fm.UsageCount != nil {
		t.UsageCount = *fm.UsageCount
	}
	if fm.SuccessCount != nil {
		t.SuccessCount = *fm.SuccessCount
	}
	return t, warnings, nil
}
