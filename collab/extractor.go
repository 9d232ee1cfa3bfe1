package collab

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GoqueryExtractor implements Extractor on top of goquery's HTML parser.
type GoqueryExtractor struct{}

// NewGoqueryExtractor returns the default HTML extractor.
func NewGoqueryExtractor() GoqueryExtractor {
	return GoqueryExtractor{}
}

// Extract parses rawContent as HTML and pulls out the visible text, the
// text inside each of ImportantTagClasses, and every <a href>.
func (GoqueryExtractor) Extract(rawContent []byte) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawContent))
	if err != nil {
		return Extraction{}, fmt.Errorf("collab: parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	important := make(map[string][]string, len(ImportantTagClasses))
	for _, class := range ImportantTagClasses {
		doc.Find(class).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text != "" {
				important[class] = append(important[class], text)
			}
		})
	}

	var outlinks []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if ok && strings.TrimSpace(href) != "" {
			outlinks = append(outlinks, href)
		}
	})

	// Text nodes are joined with a space so words in adjacent elements
	// (e.g. "<h1>a</h1><p>b</p>") stay separate tokens.
	var parts []string
	var collect func(*goquery.Selection)
	collect = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				parts = append(parts, c.Text())
			} else {
				collect(c)
			}
		})
	}
	collect(doc.Selection)
	text := strings.TrimSpace(strings.Join(parts, " "))

	return Extraction{
		Text:               text,
		ImportantFragments: important,
		Outlinks:           outlinks,
	}, nil
}
