package docread

import (
	"os"
	"strings"
	"unicode"
)

// readText extracts content from a plain text file.
func readText(path string) (string, []Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	text := normalizeWhitespace(string(data))
	if text == "" {
		return "", nil, nil
	}

	return firstLine(text), []Block{{
		Text: text,
		Type: "paragraph",
	}}, nil
}

// readMarkdown extracts structured blocks from a Markdown file. ATX headings
// become heading blocks; blank lines delimit paragraphs.
func readMarkdown(path string) (string, []Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	var blocks []Block
	var title string
	var current strings.Builder

	flushParagraph := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			blocks = append(blocks, Block{Text: text, Type: "paragraph"})
		}
		current.Reset()
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			flushParagraph()

			level := 0
			for _, ch := range trimmed {
				if ch == '#' {
					level++
				} else {
					break
				}
			}
			if level > 6 {
				level = 6
			}

			text := strings.TrimSpace(strings.TrimRight(strings.TrimLeft(trimmed, "#"), "#"))
			if text != "" {
				if title == "" {
					title = text
				}
				blocks = append(blocks, Block{Title: text, Level: level, Text: text, Type: "heading"})
			}
			continue
		}

		if trimmed == "" {
			flushParagraph()
			continue
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(trimmed)
	}
	flushParagraph()

	if title == "" && len(blocks) > 0 {
		title = firstLine(blocks[0].Text)
	}

	return title, blocks, nil
}

func normalizeWhitespace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
