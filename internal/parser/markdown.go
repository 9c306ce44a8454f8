package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser flattens Markdown files using goldmark. Headings survive
// as marker lines; everything else becomes paragraph text.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := string(node.Text(src))
			if title != "" {
				blocks = append(blocks, headingLine(node.Level, title))
			}
		default:
			if t := extractText(n, src); t != "" {
				blocks = append(blocks, t)
			}
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}

// extractText gets the text content of a goldmark AST node. Blocks with
// source lines use those directly; container nodes recurse into children.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		if t := extractText(c, src); t != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return strings.TrimSpace(buf.String())
}
