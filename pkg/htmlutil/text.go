package htmlutil

import (
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// multipleSpacesPattern matches multiple consecutive whitespace characters.
var multipleSpacesPattern = regexp.MustCompile(`\s{2,}`)

// blockTags end a line of text when they open or close.
var blockTags = map[atom.Atom]struct{}{
	atom.P: {}, atom.Div: {}, atom.Br: {}, atom.Li: {}, atom.Tr: {},
	atom.H1: {}, atom.H2: {}, atom.H3: {}, atom.H4: {}, atom.H5: {}, atom.H6: {},
	atom.Blockquote: {}, atom.Section: {}, atom.Article: {}, atom.Pre: {},
}

// skippedTags hold content that is never part of the readable text.
var skippedTags = map[atom.Atom]struct{}{
	atom.Head: {}, atom.Script: {}, atom.Style: {},
}

// ExtractText returns the readable text of an (X)HTML document. Entities are
// decoded, block-level elements become line breaks, whitespace within a line
// is collapsed and empty lines are dropped.
func ExtractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var buf strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return normalize(buf.String()), nil
			}
			return "", errors.WithStack(z.Err())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if _, ok := skippedTags[a]; ok && tt != html.SelfClosingTagToken {
				if tt == html.StartTagToken {
					skip++
				} else if skip > 0 {
					skip--
				}
				continue
			}
			if _, ok := blockTags[a]; ok {
				buf.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				buf.Write(z.Text())
			}
		}
	}
}

func normalize(text string) string {
	lines := strings.Split(text, "\n")
	nonEmptyLines := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(multipleSpacesPattern.ReplaceAllString(line, " "))
		if line != "" {
			nonEmptyLines = append(nonEmptyLines, line)
		}
	}
	return strings.Join(nonEmptyLines, "\n")
}
