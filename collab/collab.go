// Package collab defines the external collaborator interfaces the builder
// and query processor depend on (§6): the page loader, HTML extractor,
// tokenizer, stemmer, and stopword oracle. Default implementations backed
// by real parsing/stemming libraries live alongside the interfaces; the
// core builder and query packages depend only on the interfaces.
package collab

// Page is one (raw_content, url) pair as produced by a PageLoader, in
// deterministic order.
type Page struct {
	RawContent []byte
	URL        string
}

// PageLoader supplies documents to the builder in a deterministic order.
type PageLoader interface {
	// Next returns the next page, or ok=false once the loader is exhausted.
	Next() (page Page, ok bool, err error)
}

// Extraction is the HTML extractor's output: the plain text, the text
// fragments found inside "important" tags keyed by tag class, and the
// outlink hrefs (not yet resolved or defragmented).
type Extraction struct {
	Text               string
	ImportantFragments map[string][]string // tag class -> fragment*
	Outlinks           []string
}

// ImportantTagClasses enumerates the tag classes the extractor recognizes
// as carrying "important" text, per §4.4 step 5.
var ImportantTagClasses = []string{"title", "h1", "h2", "h3", "h4", "b", "strong", "mark"}

// Extractor turns raw HTML into plain text, important fragments, and
// outlink hrefs.
type Extractor interface {
	Extract(rawContent []byte) (Extraction, error)
}

// Tokenizer splits normalized text into lowercase word tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Stemmer reduces a token to its stem.
type Stemmer interface {
	Stem(token string) string
}

// StopwordOracle reports whether a token is a stopword.
type StopwordOracle interface {
	IsStopword(token string) bool
	// Count returns the number of distinct stopwords the oracle knows.
	Count() int
}
