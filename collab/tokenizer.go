package collab

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// wordPattern approximates a treebank-style word tokenizer: a run of
// letters/digits, optionally followed by one apostrophe and a run of
// letters, is one token, so contractions like "don't" stay joined;
// underscores and other punctuation are dropped rather than emitted as
// their own token. There is no treebank tokenizer library in the dependency
// set this build draws from, so the split itself is a regular expression;
// normalization and casefolding ahead of it are delegated to
// golang.org/x/text so the split only ever sees NFC, lowercase input.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)?`)

// DefaultTokenizer is the collab.Tokenizer used by both indexing and
// querying (§4.8 stage 1 requires the query tokenize identically).
type DefaultTokenizer struct {
	caser cases.Caser
}

// NewDefaultTokenizer builds a tokenizer with locale-independent lowercase
// folding (language.Und avoids e.g. Turkish dotless-i special-casing,
// which would make token identity locale-dependent).
func NewDefaultTokenizer() *DefaultTokenizer {
	return &DefaultTokenizer{caser: cases.Lower(language.Und)}
}

// Tokenize lowercases and NFC-normalizes text, then splits it into word
// tokens.
func (t *DefaultTokenizer) Tokenize(text string) []string {
	normalized := norm.NFC.String(text)
	folded := t.caser.String(normalized)
	matches := wordPattern.FindAllString(folded, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m) == "" {
			continue
		}
		tokens = append(tokens, m)
	}
	return tokens
}
