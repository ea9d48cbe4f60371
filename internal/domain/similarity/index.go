// Package similarity implements a TF-IDF term space with cosine similarity
// over the encoded component documents.
package similarity

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 500

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Vector is a sparse document vector. Terms is sorted ascending and
// Weights[i] belongs to Terms[i].
type Vector struct {
	Terms   []int
	Weights []float64
}

// Dot returns the inner product of v and o.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Terms) && j < len(o.Terms) {
		switch {
		case v.Terms[i] == o.Terms[j]:
			sum += v.Weights[i] * o.Weights[j]
			i++
			j++
		case v.Terms[i] < o.Terms[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Option configures Fit.
type Option func(*options)

type options struct {
	maxFeatures int
}

// WithMaxFeatures caps the vocabulary at n terms. Values below 1 are ignored.
func WithMaxFeatures(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFeatures = n
		}
	}
}

// Index is a fitted TF-IDF space. It is immutable after Fit and safe for
// concurrent readers.
type Index struct {
	vocab map[string]int
	terms []string
	idf   []float64
	rows  []Vector
}

// Fit tokenizes docs, selects the vocabulary and returns the weighted,
// L2-normalized document vectors.
func Fit(docs []string, opts ...Option) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}
	o := options{maxFeatures: DefaultMaxFeatures}
	for _, opt := range opts {
		opt(&o)
	}

	analyzed := make([][]string, len(docs))
	freq := make(map[string]int)
	for i, d := range docs {
		analyzed[i] = analyze(d)
		for _, t := range analyzed[i] {
			freq[t]++
		}
	}
	if len(freq) == 0 {
		return nil, fmt.Errorf("%w: no terms after stop-word removal", ErrEmptyCorpus)
	}

	candidates := make([]string, 0, len(freq))
	for t := range freq {
		candidates = append(candidates, t)
	}
	sort.Slice(candidates, func(i, j int) bool {
		fi, fj := freq[candidates[i]], freq[candidates[j]]
		if fi != fj {
			return fi > fj
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > o.maxFeatures {
		candidates = candidates[:o.maxFeatures]
	}
	// column order is lexicographic, independent of the cut
	sort.Strings(candidates)

	idx := &Index{
		vocab: make(map[string]int, len(candidates)),
		terms: candidates,
		idf:   make([]float64, len(candidates)),
		rows:  make([]Vector, len(docs)),
	}
	for i, t := range candidates {
		idx.vocab[t] = i
	}

	df := make([]int, len(candidates))
	for _, tokens := range analyzed {
		seen := make(map[int]struct{})
		for _, t := range tokens {
			if col, ok := idx.vocab[t]; ok {
				if _, dup := seen[col]; !dup {
					seen[col] = struct{}{}
					df[col]++
				}
			}
		}
	}
	n := float64(len(docs))
	for col := range idx.idf {
		idx.idf[col] = math.Log((1+n)/(1+float64(df[col]))) + 1
	}

	for i, tokens := range analyzed {
		idx.rows[i] = idx.vectorize(tokens)
	}
	return idx, nil
}

// Len returns the number of fitted documents.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.rows)
}

// VocabularySize returns the number of terms in the space.
func (x *Index) VocabularySize() int {
	if x == nil {
		return 0
	}
	return len(x.terms)
}

// Row returns the fitted vector of document i.
func (x *Index) Row(i int) (Vector, error) {
	if x == nil || x.rows == nil {
		return Vector{}, ErrNotTrained
	}
	if i < 0 || i >= len(x.rows) {
		return Vector{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(x.rows))
	}
	return x.rows[i], nil
}

// Similarity returns the cosine similarity of documents i and j in [0,1].
func (x *Index) Similarity(i, j int) (float64, error) {
	a, err := x.Row(i)
	if err != nil {
		return 0, err
	}
	b, err := x.Row(j)
	if err != nil {
		return 0, err
	}
	return clamp(a.Dot(b)), nil
}

// SimilarityRow returns the similarity of document i against every document.
func (x *Index) SimilarityRow(i int) ([]float64, error) {
	a, err := x.Row(i)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(x.rows))
	for j, b := range x.rows {
		out[j] = clamp(a.Dot(b))
	}
	return out, nil
}

// Transform projects text into the fitted space. Terms outside the
// vocabulary are ignored.
func (x *Index) Transform(text string) (Vector, error) {
	if x == nil || x.rows == nil {
		return Vector{}, ErrNotTrained
	}
	return x.vectorize(analyze(text)), nil
}

func (x *Index) vectorize(tokens []string) Vector {
	counts := make(map[int]float64)
	for _, t := range tokens {
		if col, ok := x.vocab[t]; ok {
			counts[col]++
		}
	}
	v := Vector{
		Terms:   make([]int, 0, len(counts)),
		Weights: make([]float64, 0, len(counts)),
	}
	for col := range counts {
		v.Terms = append(v.Terms, col)
	}
	sort.Ints(v.Terms)
	var norm float64
	for _, col := range v.Terms {
		w := counts[col] * x.idf[col]
		v.Weights = append(v.Weights, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range v.Weights {
			v.Weights[k] /= norm
		}
	}
	return v
}

// analyze lowercases, tokenizes, drops stop words and emits unigrams
// followed by bigrams.
func analyze(doc string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(doc), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, stop := englishStopWords[t]; !stop {
			tokens = append(tokens, t)
		}
	}
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
