package collab

import (
	"fmt"
	"net/url"

	"github.com/goware/urlx"
)

// Defragment normalizes a URL and strips its fragment, used by the
// builder's URL-dedup step (§4.4 step 3) and outlink resolution (§4.4 step
// 5).
func Defragment(rawURL string) (string, error) {
	normalized, err := urlx.NormalizeString(rawURL)
	if err != nil {
		return "", fmt.Errorf("collab: normalize url %q: %w", rawURL, err)
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("collab: parse normalized url %q: %w", normalized, err)
	}
	u.Fragment = ""
	return u.String(), nil
}

// ResolveOutlink resolves href against the document's own URL, then
// defragments the result. Relative hrefs, protocol-relative hrefs, and
// already-absolute hrefs are all handled by url.Parse's Reference
// resolution.
func ResolveOutlink(docURL, href string) (string, error) {
	base, err := url.Parse(docURL)
	if err != nil {
		return "", fmt.Errorf("collab: parse document url %q: %w", docURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("collab: parse outlink href %q: %w", href, err)
	}
	resolved := base.ResolveReference(ref)
	return Defragment(resolved.String())
}
