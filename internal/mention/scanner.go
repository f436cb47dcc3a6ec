// Package mention finds "@handle" references in published text.
package mention

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Bounds is the accepted nickname length, '@' excluded
type Bounds struct {
	Min int
	Max int
}

// Scan returns the distinct lower-cased handles mentioned in text, in order of
// first appearance. A token starts at '@' and runs over ASCII letters, digits
// and '_'; tokens outside bounds are ignored. An '@' glued to a preceding
// handle character (as in an e-mail address) does not start a token.
func Scan(text string, b Bounds) []string {
	var handles []string
	seen := make(map[string]bool)

	for i := 0; i < len(text); i++ {
		if text[i] != '@' {
			continue
		}
		if i > 0 && isHandleChar(text[i-1]) {
			continue
		}
		j := i + 1
		for j < len(text) && isHandleChar(text[j]) {
			j++
		}
		n := j - i - 1
		if n >= b.Min && n <= b.Max {
			handle := strings.ToLower(text[i+1 : j])
			if !seen[handle] {
				seen[handle] = true
				handles = append(handles, handle)
			}
		}
		i = j - 1
	}
	return handles
}

// PlainText flattens markup to its text nodes, separated by spaces, with
// entities decoded. Input that is not markup comes back unchanged in content.
func PlainText(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return markup
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}

	var parts []string
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "script" || goquery.NodeName(s) == "style" {
			return
		}
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				parts = append(parts, c.Text())
			}
		})
	})
	return strings.Join(parts, " ")
}

// ScanMarkup is Scan over the text content of possibly marked-up input
func ScanMarkup(markup string, b Bounds) []string {
	return Scan(PlainText(markup), b)
}

func isHandleChar(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}
