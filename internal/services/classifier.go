// Package services contains the business logic layer for the email link
// shortener: URL eligibility, document scanning and rewriting, short-code
// allocation, redirect resolution, and click analytics.
package services

import (
	"regexp"
	"strings"
)

var (
	// httpSchemeRe matches absolute http(s) URLs only. Everything else
	// (mailto:, tel:, fragments, relative paths) is ineligible.
	httpSchemeRe = regexp.MustCompile(`(?i)^https?://`)

	// templateTokenRe matches unresolved mustache-style placeholders like
	// {{unsubscribe}}, possibly spanning several characters.
	templateTokenRe = regexp.MustCompile(`\{\{[\s\S]*?\}\}`)

	// unsubscribeTagRe matches the {% unsubscribe_link %}-style tag some
	// mail-merge systems use instead of double braces.
	unsubscribeTagRe = regexp.MustCompile(`(?i)\{%\s*unsubscribe_link\s*%\}`)
)

// ShouldProcess decides whether a candidate URL is eligible for shortening.
// shortDomain must be normalized (scheme, no trailing slash). The function is
// pure: an unparsable string simply evaluates to false.
func ShouldProcess(rawURL, shortDomain string) bool {
	if !httpSchemeRe.MatchString(rawURL) {
		return false
	}
	if isAlreadyShort(rawURL, shortDomain) {
		return false
	}
	if hasTemplateToken(rawURL) {
		return false
	}
	return true
}

// isAlreadyShort reports whether the URL already points at this deployment's
// redirect prefix. Re-shortening an already-short link would otherwise happen
// on repeated retries of the same document.
func isAlreadyShort(rawURL, shortDomain string) bool {
	prefix := strings.ToLower(shortDomain + "/r/")
	return strings.HasPrefix(strings.ToLower(rawURL), prefix)
}

// hasTemplateToken reports whether the URL contains an unresolved mail-merge
// placeholder that must pass through unmodified.
func hasTemplateToken(rawURL string) bool {
	return templateTokenRe.MatchString(rawURL) || unsubscribeTagRe.MatchString(rawURL)
}
