package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser flattens HTML files. Heading tags become marker lines and
// content blocks become paragraphs; chrome elements are skipped.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var blocks []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := htmlHeadingLevel(n.Data); level > 0 {
				if title := textContent(n); title != "" {
					blocks = append(blocks, headingLine(level, title))
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td", "blockquote":
				if t := textContent(n); t != "" {
					blocks = append(blocks, t)
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	return strings.Join(blocks, "\n\n"), nil
}

func htmlHeadingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
