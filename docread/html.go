package docread

import (
	"bytes"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0[^1-9]`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0[^.]`),
	regexp.MustCompile(`(?i)position\s*:\s*absolute[^;]*-\d{4,}`),
}

func hasHiddenStyle(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// readHTMLFile extracts structured content from an HTML file.
func readHTMLFile(path string) (string, []Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", nil, err
	}

	title := findHTMLTitle(doc)

	var blocks []Block
	walkHTMLNodes(doc, &blocks)

	if len(blocks) == 0 {
		// Fallback: extract all text.
		if text := collectHTMLText(doc); text != "" {
			blocks = append(blocks, Block{Text: text, Type: "paragraph"})
		}
	}

	return title, blocks, nil
}

// findHTMLTitle extracts the <title> text.
func findHTMLTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findHTMLTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// walkHTMLNodes walks the DOM tree and extracts headings and content blocks.
func walkHTMLNodes(n *html.Node, blocks *[]Block) {
	if n.Type == html.ElementNode {
		// Skip boilerplate.
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Header:
			return
		}
		if hasHiddenStyle(n) {
			return
		}

		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			if text := collectHTMLText(n); text != "" {
				level := int(n.Data[1] - '0')
				*blocks = append(*blocks, Block{Title: text, Level: level, Text: text, Type: "heading"})
			}
			return

		case atom.P:
			if text := collectHTMLText(n); text != "" {
				*blocks = append(*blocks, Block{Text: text, Type: "paragraph"})
			}
			return

		case atom.Table:
			if text := collectHTMLText(n); text != "" {
				*blocks = append(*blocks, Block{Text: text, Type: "table"})
			}
			return

		case atom.Ul, atom.Ol:
			if text := collectHTMLText(n); text != "" {
				*blocks = append(*blocks, Block{Text: text, Type: "list"})
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTMLNodes(c, blocks)
	}
}

// collectHTMLText extracts all visible text from a node subtree.
func collectHTMLText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
			if hasHiddenStyle(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
