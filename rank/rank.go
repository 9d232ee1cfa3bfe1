// Package rank implements the two link-graph scorers of §4.7: PageRank
// and HITS. Both operate over the corpus's link sets as materialized by
// package bucket's Reader and patch their result into the document table
// in place.
package rank

import (
	"fmt"
	"math"

	"github.com/rpcpool/corpusdex/bucket"
	"github.com/rpcpool/corpusdex/docstore"
	"k8s.io/klog/v2"
)

const (
	damping        = 0.85
	maxIterations  = 100
	convergenceTol = 1e-6
)

// graph is the link structure the scorers iterate over: out[d] holds the
// docids d links to, restricted to documents the reader actually knows
// about (so a dangling outlink simply doesn't count toward any node's
// out-degree or contribute rank anywhere).
type graph struct {
	n   int
	out map[uint64][]uint64
}

func buildGraph(r *bucket.Reader) graph {
	n := int(r.Table.Count())
	out := make(map[uint64][]uint64, n)
	for docID := uint64(1); docID <= uint64(n); docID++ {
		if ids, ok := r.GetLinkedDocids(docID); ok {
			out[docID] = ids
		}
	}
	return graph{n: n, out: out}
}

// PageRank runs the classic damped power iteration over r's link graph
// (§4.7) and patches each docid's pr_quality field in place via the
// document table's batch patch writer. InitializeDoclinks must already
// have been called on r.
func PageRank(r *bucket.Reader) error {
	g := buildGraph(r)
	if g.n == 0 {
		return nil
	}

	rankVec := make(map[uint64]float64, g.n)
	for d := uint64(1); d <= uint64(g.n); d++ {
		rankVec[d] = 1.0 / float64(g.n)
	}

	for iter := 0; iter < maxIterations; iter++ {
		next := make(map[uint64]float64, g.n)
		for d := uint64(1); d <= uint64(g.n); d++ {
			next[d] = 1 - damping
		}
		for src, targets := range g.out {
			if len(targets) == 0 {
				continue
			}
			share := damping * rankVec[src] / float64(len(targets))
			for _, t := range targets {
				next[t] += share
			}
		}

		var maxDelta float64
		for d, v := range next {
			if delta := v - rankVec[d]; delta > maxDelta {
				maxDelta = delta
			} else if -delta > maxDelta {
				maxDelta = -delta
			}
		}
		rankVec = next
		klog.V(2).Infof("rank: pagerank iteration %d max_delta=%g", iter, maxDelta)
		if maxDelta < convergenceTol {
			break
		}
	}

	return patchQuality(r, func(pw *docstore.PatchWriter, d uint64) error {
		return pw.PatchPRQuality(d, float32(rankVec[d]))
	})
}

// HITS runs the repo's deliberately non-textbook symmetric-outgoing
// formulation (§4.7, §9): both hub and authority sum over a document's
// outgoing links rather than authority summing over incoming links as in
// the textbook algorithm. This is preserved as specified, not "fixed".
func HITS(r *bucket.Reader) error {
	g := buildGraph(r)
	if g.n == 0 {
		return nil
	}

	hub := make(map[uint64]float64, g.n)
	auth := make(map[uint64]float64, g.n)
	for d := uint64(1); d <= uint64(g.n); d++ {
		hub[d] = 1
		auth[d] = 1
	}

	for iter := 0; iter < maxIterations; iter++ {
		newHub := make(map[uint64]float64, g.n)
		newAuth := make(map[uint64]float64, g.n)
		for d := uint64(1); d <= uint64(g.n); d++ {
			var hSum, aSum float64
			for _, t := range g.out[d] {
				aSum += auth[t]
				hSum += hub[t]
			}
			newHub[d] = aSum
			newAuth[d] = hSum
		}
		normalize(newHub)
		normalize(newAuth)

		maxDelta := maxAbsDelta(hub, newHub)
		if d := maxAbsDelta(auth, newAuth); d > maxDelta {
			maxDelta = d
		}
		hub, auth = newHub, newAuth
		klog.V(2).Infof("rank: hits iteration %d max_delta=%g", iter, maxDelta)
		if maxDelta < convergenceTol {
			break
		}
	}

	return patchQuality(r, func(pw *docstore.PatchWriter, d uint64) error {
		return pw.PatchHubAuth(d, float32(hub[d]), float32(auth[d]))
	})
}

func normalize(v map[uint64]float64) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += x * x
	}
	if sumSquares == 0 {
		return
	}
	norm := math.Sqrt(sumSquares)
	for k := range v {
		v[k] /= norm
	}
}

func maxAbsDelta(a, b map[uint64]float64) float64 {
	var max float64
	for k, bv := range b {
		delta := bv - a[k]
		if delta < 0 {
			delta = -delta
		}
		if delta > max {
			max = delta
		}
	}
	return max
}

func patchQuality(r *bucket.Reader, apply func(pw *docstore.PatchWriter, d uint64) error) error {
	pw, err := r.Table.OpenPatchWriter()
	if err != nil {
		return fmt.Errorf("rank: open patch writer: %w", err)
	}
	defer pw.Close()

	n := r.Table.Count()
	for d := uint64(1); d <= n; d++ {
		if err := apply(pw, d); err != nil {
			return fmt.Errorf("rank: patch docid %d: %w", d, err)
		}
	}
	return nil
}
