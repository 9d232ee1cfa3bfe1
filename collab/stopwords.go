package collab

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// StaticStopwords is a StopwordOracle backed by a fixed set loaded once
// from a newline-delimited file, per §6.
type StaticStopwords struct {
	set map[string]struct{}
}

// LoadStopwords reads a newline-delimited stopword list. Blank lines and
// lines starting with '#' are ignored.
func LoadStopwords(path string) (*StaticStopwords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("collab: open stopwords %s: %w", path, err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("collab: scan stopwords %s: %w", path, err)
	}
	return &StaticStopwords{set: set}, nil
}

// NewStopwords builds an oracle directly from a slice, for tests and for
// embedding a default list without a filesystem round trip.
func NewStopwords(words []string) *StaticStopwords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return &StaticStopwords{set: set}
}

func (s *StaticStopwords) IsStopword(token string) bool {
	_, ok := s.set[token]
	return ok
}

func (s *StaticStopwords) Count() int {
	return len(s.set)
}

// DefaultEnglishStopwords is a compact fallback list used when no
// --stopwords file is supplied, covering the common high-frequency
// English function words the query processor's recovery logic (§4.8
// stage 2) is built around.
var DefaultEnglishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "aren't", "as", "at", "be", "because", "been", "before", "being",
	"below", "between", "both", "but", "by", "can't", "cannot", "could", "couldn't",
	"did", "didn't", "do", "does", "doesn't", "doing", "don't", "down", "during",
	"each", "few", "for", "from", "further", "had", "hadn't", "has", "hasn't",
	"have", "haven't", "having", "he", "her", "here", "hers", "herself", "him",
	"himself", "his", "how", "i", "if", "in", "into", "is", "isn't", "it", "its",
	"itself", "let's", "me", "more", "most", "my", "myself", "no", "nor", "not",
	"of", "off", "on", "once", "only", "or", "other", "ought", "our", "ours",
	"ourselves", "out", "over", "own", "same", "she", "should", "shouldn't", "so",
	"some", "such", "than", "that", "the", "their", "theirs", "them", "themselves",
	"then", "there", "these", "they", "this", "those", "through", "to", "too",
	"under", "until", "up", "very", "was", "wasn't", "we", "were", "weren't",
	"what", "when", "where", "which", "while", "who", "whom", "why", "with",
	"won't", "would", "wouldn't", "you", "your", "yours", "yourself", "yourselves",
}
