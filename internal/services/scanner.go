package services

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// dataURLAttrs is the fixed set of auxiliary URL-bearing attributes scanned
// in addition to anchor hrefs. Hidden links living in data attributes count
// toward payload size just like visible ones.
var dataURLAttrs = []string{"data-href", "data-url", "data-link"}

// ParseDocument parses raw HTML tolerantly. Malformed or unclosed markup is
// recovered best-effort by the underlying parser and never raises an error
// for ordinary truncated input.
func ParseDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// CollectCandidates enumerates the unique URLs in the document that pass the
// eligibility check. Each URL appears once in the result no matter how many
// elements reference it, in first-seen document order.
func CollectCandidates(doc *goquery.Document, shortDomain string) []string {
	seen := make(map[string]struct{})
	var candidates []string

	add := func(href string) {
		if href == "" || !ShouldProcess(href, shortDomain) {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		candidates = append(candidates, href)
	}

	// visible links (anchors)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		add(href)
	})

	// hidden links in data attributes, on any element
	for _, attr := range dataURLAttrs {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr(attr)
			add(href)
		})
	}

	return candidates
}

// ApplySubstitutions rewrites every occurrence whose current value has an
// entry in the substitution table, across anchor hrefs and the auxiliary
// data attributes. Occurrences without a table entry are left untouched.
// The table is keyed by URL, so repeated occurrences of the same URL all
// receive the same short link.
func ApplySubstitutions(doc *goquery.Document, table map[string]string) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if short, ok := table[href]; ok {
			s.SetAttr("href", short)
		}
	})
	for _, attr := range dataURLAttrs {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr(attr)
			if short, ok := table[href]; ok {
				s.SetAttr(attr, short)
			}
		})
	}
}
