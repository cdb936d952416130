package render

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/docsmith/docsmith/internal/docgen"
)

// MarkdownEngine renders the draft as a single Markdown document.
type MarkdownEngine struct{}

// Render concatenates the draft sections under a top-level title.
func (e *MarkdownEngine) Render(ctx context.Context, draft *docgen.Draft) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", draft.Title)
	for _, s := range draft.Sections {
		fmt.Fprintf(&b, "# %s\n\n%s\n\n", s.Title, strings.TrimRight(s.Body, "\n"))
	}
	return []byte(b.String()), nil
}

// HTMLEngine renders the draft as a standalone HTML page.
// The conversion is intentionally small: headings, tables, lists, and
// paragraphs. Anything fancier belongs in an external engine.
type HTMLEngine struct{}

// Render converts the draft's Markdown sections to an HTML page.
func (e *HTMLEngine) Render(ctx context.Context, draft *docgen.Draft) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(draft.Title))
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(draft.Title))
	for _, s := range draft.Sections {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(s.Title))
		writeMarkdownAsHTML(&b, s.Body)
	}
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String()), nil
}

// writeMarkdownAsHTML converts a Markdown body line by line.
func writeMarkdownAsHTML(b *strings.Builder, body string) {
	inTable := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			if inTable {
				b.WriteString("</table>\n")
				inTable = false
			}
		case strings.HasPrefix(trimmed, "### "):
			fmt.Fprintf(b, "<h3>%s</h3>\n", html.EscapeString(trimmed[4:]))
		case strings.HasPrefix(trimmed, "## "):
			fmt.Fprintf(b, "<h2>%s</h2>\n", html.EscapeString(trimmed[3:]))
		case strings.HasPrefix(trimmed, "# "):
			fmt.Fprintf(b, "<h1>%s</h1>\n", html.EscapeString(trimmed[2:]))
		case strings.HasPrefix(trimmed, "|"):
			if strings.HasPrefix(trimmed, "|--") || strings.HasPrefix(trimmed, "|---") {
				continue // separator row
			}
			if !inTable {
				b.WriteString("<table>\n")
				inTable = true
			}
			b.WriteString("<tr>")
			for _, cell := range strings.Split(strings.Trim(trimmed, "|"), "|") {
				fmt.Fprintf(b, "<td>%s</td>", html.EscapeString(strings.TrimSpace(cell)))
			}
			b.WriteString("</tr>\n")
		case strings.HasPrefix(trimmed, "- "):
			fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(trimmed[2:]))
		default:
			fmt.Fprintf(b, "<p>%s</p>\n", html.EscapeString(trimmed))
		}
	}
	if inTable {
		b.WriteString("</table>\n")
	}
}
