package ingest

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlTagPattern detects pasted markup. It is deliberately narrow:
// generic angle brackets in code ("if a < b", generics) must not
// trigger HTML stripping.
var (
	htmlTagPattern    = regexp.MustCompile(`(?i)</?(html|body|div|p|span|table|tr|td|th|ul|ol|li|h[1-6]|br|a|em|strong)\b[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize prepares raw submission content for validation. Content
// pasted from wiki or ticket tools often arrives as HTML; that gets
// stripped down to text. Plain text passes through untouched apart
// from trimming, preserving code blocks and indentation the scorer
// looks at.
func Normalize(content string) string {
	if !htmlTagPattern.MatchString(content) {
		return strings.TrimSpace(content)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(content)
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
