// Package sparse implements BM25 term scoring over a tokenized corpus,
// persisted as plain JSON rather than a binary search-engine index.
package sparse

import "math"

const (
	k1      = 1.5
	b       = 0.75
	epsilon = 0.25
)

// Index is an Okapi BM25 index built from a tokenized corpus — one
// token slice per chunk, in chunk order. It follows the rank_bm25
// formulation, except that every non-positive idf value (not only a
// negative one) is floored to epsilon*average_idf, or to epsilon when
// that product is not positive. Every idf is therefore positive, so a
// document containing a query term always scores higher than it would
// without it, even in a one- or two-document corpus.
type Index struct {
	corpusSize int
	avgDocLen  float64
	docLen     []int
	docFreqs   []map[string]int
	idf        map[string]float64
}

// Build constructs a BM25 Index from a tokenized corpus. It returns nil
// if the corpus is empty or every document is empty — rank_bm25's
// division by average document length is undefined in that case, so
// callers should treat a nil Index as "no sparse scores available"
// rather than as an error.
func Build(corpus [][]string) *Index {
	anyNonEmpty := false
	for _, doc := range corpus {
		if len(doc) > 0 {
			anyNonEmpty = true
			break
		}
	}
	if !anyNonEmpty {
		return nil
	}

	idx := &Index{
		corpusSize: len(corpus),
		docLen:     make([]int, len(corpus)),
		docFreqs:   make([]map[string]int, len(corpus)),
	}

	nd := map[string]int{}
	totalLen := 0
	for i, doc := range corpus {
		idx.docLen[i] = len(doc)
		totalLen += len(doc)

		freqs := map[string]int{}
		for _, tok := range doc {
			freqs[tok]++
		}
		idx.docFreqs[i] = freqs
		for tok := range freqs {
			nd[tok]++
		}
	}
	idx.avgDocLen = float64(totalLen) / float64(idx.corpusSize)
	idx.calcIDF(nd)
	return idx
}

func (idx *Index) calcIDF(nd map[string]int) {
	idx.idf = make(map[string]float64, len(nd))
	var idfSum float64
	var nonPositive []string

	for tok, freq := range nd {
		v := math.Log(float64(idx.corpusSize)-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		idx.idf[tok] = v
		idfSum += v
		if v <= 0 {
			nonPositive = append(nonPositive, tok)
		}
	}

	if len(nd) == 0 {
		return
	}
	avgIDF := idfSum / float64(len(nd))
	eps := epsilon * avgIDF
	if eps <= 0 {
		eps = epsilon
	}
	for _, tok := range nonPositive {
		idx.idf[tok] = eps
	}
}

// Scores returns one BM25 score per document in the corpus for the
// given (already-tokenized) query.
func (idx *Index) Scores(queryTokens []string) []float64 {
	scores := make([]float64, idx.corpusSize)
	for _, q := range queryTokens {
		idfQ, ok := idx.idf[q]
		if !ok {
			continue
		}
		for i := range scores {
			freq := float64(idx.docFreqs[i][q])
			denom := freq + k1*(1-b+b*float64(idx.docLen[i])/idx.avgDocLen)
			if denom == 0 {
				continue
			}
			scores[i] += idfQ * (freq * (k1 + 1) / denom)
		}
	}
	return scores
}
