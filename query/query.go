// Package query implements the six-stage query pipeline of §4.8:
// tokenize, stopword pruning with recovery, posting retrieval and
// intersection, TF-IDF/cosine relevance, link-quality blend, and the
// final weighted score.
package query

import (
	"math"
	"sort"
	"unicode"

	"github.com/rpcpool/corpusdex/bucket"
	"github.com/rpcpool/corpusdex/collab"
	"github.com/rpcpool/corpusdex/config"
	"github.com/rpcpool/corpusdex/posting"
)

// Result is one scored document returned by Run, already sorted
// descending by Score and truncated to the configured top K.
type Result struct {
	DocID uint64
	URL   string
	Score float64
}

// Run executes the full query pipeline against r using cfg's blend
// weights, tokenizing queryText with the same tokenizer/stemmer pair the
// builder indexed with.
func Run(r *bucket.Reader, cfg config.Scoring, tokenizer collab.Tokenizer, stemmer collab.Stemmer, stopwords collab.StopwordOracle, queryText string) ([]Result, error) {
	tokens := tokenizer.Tokenize(queryText)
	if len(tokens) == 0 {
		return nil, nil
	}

	freq := make(map[string]int)
	isStop := make(map[string]bool)
	for _, tok := range tokens {
		stemmed := stemmer.Stem(tok)
		freq[stemmed]++
		if stopwords.IsStopword(tok) {
			isStop[stemmed] = true
		}
	}

	postingsByTerm := make(map[string][]posting.Posting, len(freq))
	for term := range freq {
		p, err := r.GetPostings(term)
		if err != nil {
			return nil, err
		}
		postingsByTerm[term] = p
	}

	var (
		pruneCount, validCount int
		validTerms             []string
		stopwordTerms          []string
	)
	for term, f := range freq {
		if isStop[term] {
			stopwordTerms = append(stopwordTerms, term)
			continue
		}
		if len(postingsByTerm[term]) == 0 {
			if isAlphanumeric(term) {
				pruneCount += f
			}
		} else {
			validCount += f
			validTerms = append(validTerms, term)
		}
	}
	if pruneCount > 2*validCount {
		return nil, nil
	}

	keptStopwords := selectStopwords(stopwordTerms, len(validTerms), freq, postingsByTerm)

	finalTerms := append(append([]string{}, validTerms...), keptStopwords...)
	if len(finalTerms) == 0 {
		return nil, nil
	}

	candidates := intersectDocids(finalTerms, postingsByTerm)
	if len(candidates) == 0 {
		return nil, nil
	}

	nonEmptyDocs := countNonEmpty(r)

	relevance := relevanceScores(r, cfg, finalTerms, freq, len(tokens), postingsByTerm, candidates, nonEmptyDocs)
	quality := qualityScores(r, cfg, candidates)

	results := make([]Result, 0, len(candidates))
	for _, docID := range candidates {
		net := cfg.Score.Relevance*relevance[docID] + cfg.Score.Quality*quality[docID]
		if net <= cfg.NoiseFloor {
			continue
		}
		doc, _ := r.GetDocument(docID)
		results = append(results, Result{DocID: docID, URL: doc.URL, Score: net})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if cfg.TopK > 0 && len(results) > cfg.TopK {
		results = results[:cfg.TopK]
	}
	return results, nil
}

// isAlphanumeric reports whether term is made up entirely of letters and
// digits, excluding the tokenizer's own apostrophe-joined contractions
// ("don't") from prune_count per §4.8 stage 2's "alphanumeric only".
func isAlphanumeric(term string) bool {
	for _, r := range term {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// selectStopwords implements §4.8 stage 2's recovery rule: either drop
// every stopword, or keep the k+1 rarest (by ascending document
// frequency, tie-broken by ascending query term frequency), where
// k = floor(log2(|unique stopwords|)) + 1.
func selectStopwords(stopwordTerms []string, uniqueValidTokens int, freq map[string]int, postingsByTerm map[string][]posting.Posting) []string {
	if len(stopwordTerms) == 0 {
		return nil
	}
	if float64(len(stopwordTerms)) < 0.3*float64(uniqueValidTokens) {
		return nil
	}

	sort.Slice(stopwordTerms, func(i, j int) bool {
		di, dj := len(postingsByTerm[stopwordTerms[i]]), len(postingsByTerm[stopwordTerms[j]])
		if di != dj {
			return di < dj
		}
		return freq[stopwordTerms[i]] < freq[stopwordTerms[j]]
	})

	k := int(math.Floor(math.Log2(float64(len(stopwordTerms))))) + 1
	keep := k + 1
	if keep > len(stopwordTerms) {
		keep = len(stopwordTerms)
	}
	return stopwordTerms[:keep]
}

// intersectDocids returns the sorted docids present in every term's
// posting list.
func intersectDocids(terms []string, postingsByTerm map[string][]posting.Posting) []uint64 {
	if len(terms) == 0 {
		return nil
	}
	counts := make(map[uint64]int)
	for _, term := range terms {
		seen := make(map[uint64]struct{}, len(postingsByTerm[term]))
		for _, p := range postingsByTerm[term] {
			if _, dup := seen[p.DocID]; dup {
				continue // duplicate (term, docid) across partitions: count once per term
			}
			seen[p.DocID] = struct{}{}
			counts[p.DocID]++
		}
	}
	var out []uint64
	for docID, c := range counts {
		if c == len(terms) {
			out = append(out, docID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func countNonEmpty(r *bucket.Reader) int {
	n := int(r.Table.Count())
	count := 0
	for d := uint64(1); d <= uint64(n); d++ {
		if doc, ok := r.GetDocument(d); ok && !doc.Empty {
			count++
		}
	}
	return count
}

// relevanceScores computes §4.8 stage 4's blended TF-IDF/cosine relevance
// for every candidate document.
func relevanceScores(r *bucket.Reader, cfg config.Scoring, terms []string, queryFreq map[string]int, totalQueryTokens int, postingsByTerm map[string][]posting.Posting, candidates []uint64, nonEmptyDocs int) map[uint64]float64 {
	tfidfSum := make(map[uint64]float64, len(candidates))
	cosineRaw := make(map[uint64]float64, len(candidates))
	for _, docID := range candidates {
		tfidfSum[docID] = 0
		cosineRaw[docID] = 0
	}

	for _, term := range terms {
		postings := postingsByTerm[term]
		df := len(postings)
		idf := math.Log(float64(1+nonEmptyDocs) / float64(1+df))
		queryTF := float64(queryFreq[term]) / float64(totalQueryTokens)
		queryTFIDF := queryTF * idf

		byDoc := make(map[uint64][]posting.Posting, len(postings))
		for _, p := range postings {
			byDoc[p.DocID] = append(byDoc[p.DocID], p)
		}
		for _, docID := range candidates {
			ps, ok := byDoc[docID]
			if !ok {
				continue
			}
			doc, ok := r.GetDocument(docID)
			if !ok || doc.TotalTokens == 0 {
				continue
			}
			for _, p := range ps {
				tf := float64(p.TF) / float64(doc.TotalTokens)
				weight := cfg.Importance.Weight(p.Important())
				tfidf := tf * idf * weight
				tfidfSum[docID] += tfidf
				cosineRaw[docID] += tfidf * queryTFIDF
			}
		}
	}

	normTFIDF := l2Normalize(tfidfSum, candidates)
	normCosine := l2Normalize(cosineRaw, candidates)

	out := make(map[uint64]float64, len(candidates))
	for _, docID := range candidates {
		out[docID] = cfg.Relevance.TFIDF*normTFIDF[docID] + cfg.Relevance.Cosine*normCosine[docID]
	}
	return out
}

// qualityScores computes §4.8 stage 5's blended static-quality score.
func qualityScores(r *bucket.Reader, cfg config.Scoring, candidates []uint64) map[uint64]float64 {
	pr := make(map[uint64]float64, len(candidates))
	hub := make(map[uint64]float64, len(candidates))
	auth := make(map[uint64]float64, len(candidates))
	for _, docID := range candidates {
		doc, _ := r.GetDocument(docID)
		pr[docID] = float64(doc.PRQuality)
		hub[docID] = float64(doc.HubQuality)
		auth[docID] = float64(doc.AuthQuality)
	}

	normPR := l2Normalize(pr, candidates)
	normHub := l2Normalize(hub, candidates)
	normAuth := l2Normalize(auth, candidates)

	out := make(map[uint64]float64, len(candidates))
	for _, docID := range candidates {
		out[docID] = cfg.Quality.PageRank*normPR[docID] + cfg.Quality.Hub*normHub[docID] + cfg.Quality.Auth*normAuth[docID]
	}
	return out
}

// l2Normalize divides every candidate's value by the L2 norm of the
// vector formed by all candidates; the zero vector normalizes to itself.
func l2Normalize(values map[uint64]float64, candidates []uint64) map[uint64]float64 {
	var sumSquares float64
	for _, docID := range candidates {
		v := values[docID]
		sumSquares += v * v
	}
	out := make(map[uint64]float64, len(candidates))
	if sumSquares == 0 {
		return out
	}
	norm := math.Sqrt(sumSquares)
	for _, docID := range candidates {
		out[docID] = values[docID] / norm
	}
	return out
}
