// Package parser extracts frontmatter, wikilinks, and tags from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_-]*(?:/[A-Za-z0-9_-]+)*)`)
)

// Words-per-minute baseline for the reading-time estimate.
const readingWPM = 200

// LinkRef is one aggregated outgoing reference extracted from a body.
// Target is the literal text between the brackets; resolution against
// known document ids happens later in the coordinator.
type LinkRef struct {
	Target      string
	Anchor      string
	Occurrences int
}

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter *models.Frontmatter
	Body        string
	Links       []LinkRef
	Tags        []string
	Title       string
	WordCount   int
	ReadingTime int
}

// Parse extracts frontmatter, body, wikilinks, and tags from raw bytes.
// Malformed frontmatter degrades to "no frontmatter, full text is body";
// only content that cannot be treated as text at all (NUL bytes) fails,
// with a ParseError.
func Parse(data []byte) (*Result, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, &apperr.ParseError{Reason: "binary content"}
	}

	fm, body := splitFrontmatter(data)

	links := extractLinks(body)
	tags := extractTags(body, fm)
	title := deriveTitle(fm, body)
	wc := countWords(body)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       links,
		Tags:        tags,
		Title:       title,
		WordCount:   wc,
		ReadingTime: readingTime(wc),
	}, nil
}

// ExtractTags returns the normalized tag strings found in text (inline
// #tags plus the frontmatter tags field). Exposed standalone so the shell
// can preview tags without indexing.
func ExtractTags(text string) []string {
	fm, body := splitFrontmatter([]byte(text))
	return extractTags(body, fm)
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. A missing or invalid block means the entire
// content is body.
func splitFrontmatter(data []byte) (*models.Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var raw map[string]any
	if err := yaml.Unmarshal(yamlBlock, &raw); err != nil {
		// Invalid YAML degrades to body-only so the document stays searchable.
		return nil, string(data)
	}
	if raw == nil {
		return nil, body
	}

	return buildFrontmatter(raw), body
}

// buildFrontmatter splits the raw map into recognized fields and Extra.
func buildFrontmatter(raw map[string]any) *models.Frontmatter {
	fm := &models.Frontmatter{}
	for k, v := range raw {
		switch k {
		case "title":
			if s, ok := v.(string); ok {
				fm.Title = s
				continue
			}
		case "date":
			if s, ok := v.(string); ok {
				fm.Date = s
				continue
			}
		case "status":
			if s, ok := v.(string); ok {
				fm.Status = s
				continue
			}
		case "tags":
			fm.Tags = frontmatterTags(v)
			continue
		}
		if fm.Extra == nil {
			fm.Extra = make(map[string]any)
		}
		fm.Extra[k] = v
	}
	return fm
}

// frontmatterTags accepts either a YAML sequence or a single scalar.
func frontmatterTags(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractLinks returns aggregated wikilink targets in first-seen order.
// Repeated references to the same target increment Occurrences instead of
// producing duplicate entries. The anchor is the display alias when
// present, otherwise the line containing the first occurrence.
func extractLinks(body string) []LinkRef {
	matches := wikilinkRe.FindAllStringSubmatchIndex(body, -1)
	byTarget := make(map[string]int, len(matches))
	var out []LinkRef

	for _, m := range matches {
		raw := body[m[2]:m[3]]
		target := raw
		alias := ""
		if i := strings.Index(raw, "|"); i >= 0 {
			target = raw[:i]
			alias = strings.TrimSpace(raw[i+1:])
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		key := strings.ToLower(target)
		if i, ok := byTarget[key]; ok {
			out[i].Occurrences++
			continue
		}

		anchor := alias
		if anchor == "" {
			anchor = lineAround(body, m[0])
		}
		byTarget[key] = len(out)
		out = append(out, LinkRef{Target: target, Anchor: anchor, Occurrences: 1})
	}
	return out
}

// lineAround returns the trimmed line containing byte offset pos,
// truncated to keep anchors short.
func lineAround(body string, pos int) string {
	start := strings.LastIndexByte(body[:pos], '\n') + 1
	end := strings.IndexByte(body[pos:], '\n')
	if end < 0 {
		end = len(body)
	} else {
		end += pos
	}
	line := strings.TrimSpace(body[start:end])
	const max = 120
	if len(line) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut]
	}
	return line
}

// extractTags collects normalized #tags from body and from the
// frontmatter tags field. Duplicates collapse to one entry.
func extractTags(body string, fm *models.Frontmatter) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(raw string) {
		t := NormalizeTag(raw)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if fm != nil {
		for _, t := range fm.Tags {
			add(t)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// NormalizeTag lowercases a tag path and strips empty segments, so
// "Project//Backend/" and "project/backend" are the same tag.
func NormalizeTag(raw string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "/")
	segs := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segs = append(segs, p)
		}
	}
	return strings.Join(segs, "/")
}

// deriveTitle returns the frontmatter title if present, otherwise the
// first H1 heading, otherwise empty string (the coordinator falls back
// to the filename stem).
func deriveTitle(fm *models.Frontmatter, body string) string {
	if fm != nil && fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// countWords tokenizes on whitespace, which is deterministic and
// locale-independent.
func countWords(body string) int {
	return len(strings.Fields(body))
}

func readingTime(words int) int {
	if words == 0 {
		return 0
	}
	return (words + readingWPM - 1) / readingWPM
}
