package snapshot

import (
	"sort"
	"strings"
)

// Context is the save-time payload: either free text or a structured set
// of sections. Exactly one branch is populated; Render resolves it to the
// single string that gets persisted. Stored context is never re-parsed.
type Context struct {
	FreeText   string
	Structured *StructuredContext
}

// StructuredContext holds the ordered sections of a structured payload.
// Extra carries free-form sections beyond the canonical set.
type StructuredContext struct {
	Description string            `json:"description,omitempty"`
	Files       []string          `json:"files,omitempty"`
	Decisions   []string          `json:"decisions,omitempty"`
	Blockers    []string          `json:"blockers,omitempty"`
	ErrorsFixed []string          `json:"errors_fixed,omitempty"`
	Tests       string            `json:"tests,omitempty"`
	Extra       map[string]string `json:"-"`
}

// IsZero reports whether the context has no content in either branch.
func (c Context) IsZero() bool {
	if c.Structured != nil {
		return strings.TrimSpace(c.Structured.render()) == ""
	}
	return strings.TrimSpace(c.FreeText) == ""
}

// Render resolves the context to the single string stored in the database.
// Free text passes through trimmed; structured payloads render their
// populated sections as markdown in canonical order (description, files,
// decisions, blockers, errors_fixed, tests), then extra keys sorted.
func (c Context) Render() string {
	if c.Structured != nil {
		return c.Structured.render()
	}
	return strings.TrimSpace(c.FreeText)
}

func (s *StructuredContext) render() string {
	var sb strings.Builder

	writeText(&sb, "Description", s.Description)
	writeList(&sb, "Files", s.Files)
	writeList(&sb, "Decisions", s.Decisions)
	writeList(&sb, "Blockers", s.Blockers)
	writeList(&sb, "Errors Fixed", s.ErrorsFixed)
	writeText(&sb, "Tests", s.Tests)

	// Extra sections sorted by key for a stable rendering
	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeText(&sb, titleCase(k), s.Extra[k])
	}

	return strings.TrimRight(sb.String(), "\n")
}

func writeText(sb *strings.Builder, header, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	writeHeader(sb, header)
	sb.WriteString(text)
	sb.WriteString("\n")
}

func writeList(sb *strings.Builder, header string, items []string) {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	if len(cleaned) == 0 {
		return
	}
	writeHeader(sb, header)
	for _, item := range cleaned {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
}

func writeHeader(sb *strings.Builder, header string) {
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("## ")
	sb.WriteString(header)
	sb.WriteString("\n")
}

// titleCase uppercases the first letter of each underscore- or
// space-separated word ("errors_fixed" -> "Errors Fixed").
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	})
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[:1])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
