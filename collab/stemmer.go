package collab

import "github.com/kljensen/snowball"

// SnowballStemmer implements Stemmer with the Porter stemming algorithm
// via the snowball library's english stemmer.
type SnowballStemmer struct{}

// NewSnowballStemmer returns the default Porter stemmer.
func NewSnowballStemmer() SnowballStemmer {
	return SnowballStemmer{}
}

// Stem reduces token to its English Porter stem. stemStopwords is true
// here: stopword filtering is the query/builder pipeline's job (§4.8
// stage 2), not the stemmer's — with false, snowball would return words on
// its own stopword list unstemmed.
func (SnowballStemmer) Stem(token string) string {
	stemmed, err := snowball.Stem(token, "english", true)
	if err != nil {
		return token
	}
	return stemmed
}
