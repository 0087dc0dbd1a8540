// Package markdown implements the YAML-front-matter + strict H1/H2
// Markdown codec for Architecture and Troubleshoot memory items, plus the
// batch export/import machinery.
package markdown

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vuxtra/jivemcp/internal/apperr"
)

const timeLayout = time.RFC3339

// frontMatter is the strict header field set for memory documents.
// Version is a
// document-level counter carried in the Markdown representation only —
// the store has no version column, so Decode accepts any value and
// Encode always emits 1 for freshly-exported items.
type frontMatter struct {
	Type          string `yaml:"type"`
	Slug          string `yaml:"slug"`
	Version       int    `yaml:"version"`
	CreatedOn     string `yaml:"created_on"`
	LastUpdatedOn string `yaml:"last_updated_on"`
	UsageCount    *int   `yaml:"usage_count,omitempty"`
	SuccessCount  *int   `yaml:"success_count,omitempty"`
}

// splitFrontMatter separates the YAML block (delimited by "---" lines)
// from the Markdown body. Returns a Fatal apperr (InvalidYAML-flavored
// ValidationError) if the document has no front matter block.
func splitFrontMatter(content string) (fm frontMatter, body string, err error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return fm, "", apperr.New(apperr.ValidationError, "document missing YAML front matter delimiter '---'")
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return fm, "", apperr.New(apperr.ValidationError, "document missing closing '---' for front matter")
	}
	yamlBlock := strings.Join(lines[1:end], "\n")
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		return fm, "", apperr.Wrap(apperr.ValidationError, "invalid YAML front matter", err)
	}
	body = strings.Join(lines[end+1:], "\n")
	return fm, body, nil
}

func renderFrontMatter(fm frontMatter) (string, error) {
	b, err := yaml.Marshal(fm)
	if err != nil {
		return "", apperr.Wrap(apperr.StoreError, "marshaling front matter", err)
	}
	return "---\n" + string(b) + "---\n", nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(timeLayout)
}

// LastUpdatedOn reads just the last_updated_on timestamp out of a
// document's front matter, for callers (the sync engine) that need to
// compare file/store recency without decoding the full body.
func LastUpdatedOn(content string) (time.Time, error) {
	fm, _, err := splitFrontMatter(content)
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(fm.LastUpdatedOn), nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- strict H1/H2 section parsing ---

// section is one H2-delimited block of a document body (the text between
// "## Heading" and the next "## " line). "### " lines do not end a
// section: H3 subsections nested under a H2 (Relationships' Children/
// Related) stay in its lines and are parsed separately by the caller.
type section struct {
	heading string
	lines   []string
}

// parseBody extracts the H1 title and the ordered list of H2 sections
// from a document body.
func parseBody(body string) (title string, sections []section) {
	lines := strings.Split(body, "\n")
	var cur *section
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		switch {
		case strings.HasPrefix(trimmed, "# ") && title == "":
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		case strings.HasPrefix(trimmed, "## "):
			heading := strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			sections = append(sections, section{heading: heading})
			cur = &sections[len(sections)-1]
		default:
			if cur != nil {
				cur.lines = append(cur.lines, line)
			}
		}
	}
	return title, sections
}

func findSection(sections []section, heading string) (section, bool) {
	for _, s := range sections {
		if strings.EqualFold(s.heading, heading) {
			return s, true
		}
	}
	return section{}, false
}

func (s section) text() string {
	return strings.TrimSpace(strings.Join(s.lines, "\n"))
}

// bulletList parses "- item" lines, ignoring blanks.
func (s section) bulletList() []string {
	var out []string
	for _, line := range s.lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		t = strings.TrimPrefix(t, "- ")
		t = strings.TrimPrefix(t, "* ")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// inlineCodeTokens extracts every `token` occurrence in the section text,
// in order, used for the Keywords section.
func (s section) inlineCodeTokens() []string {
	text := strings.Join(s.lines, " ")
	var out []string
	for {
		start := strings.IndexByte(text, '`')
		if start == -1 {
			break
		}
		rest := text[start+1:]
		end := strings.IndexByte(rest, '`')
		if end == -1 {
			break
		}
		if tok := strings.TrimSpace(rest[:end]); tok != "" {
			out = append(out, tok)
		}
		text = rest[end+1:]
	}
	return out
}

// h3Subsection extracts the lines under "### Heading" inside a
// Relationships section's raw lines.
func h3Subsection(lines []string, heading string) []string {
	var out []string
	capturing := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "### ") {
			capturing = strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(trimmed, "### ")), heading)
			continue
		}
		if capturing {
			out = append(out, line)
		}
	}
	return section{lines: out}.bulletList()
}
