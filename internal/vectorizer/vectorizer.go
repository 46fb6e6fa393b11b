// Package vectorizer converts free-text documents into sparse TF-IDF term
// vectors over a frozen vocabulary.
package vectorizer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// DefaultMaxFeatures bounds the vocabulary so memory and query latency stay
// bounded as the catalog grows.
const DefaultMaxFeatures = 5000

// Vectorizer fits a TF-IDF vocabulary over a document corpus.
type Vectorizer struct {
	maxFeatures int
}

// New creates a vectorizer with the given vocabulary cap.
// maxFeatures <= 0 uses DefaultMaxFeatures.
func New(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{maxFeatures: maxFeatures}
}

// Fitted is a frozen vocabulary with per-term inverse document frequencies.
// Once fit, the vocabulary never changes; transforming new text drops
// out-of-vocabulary terms. Fields are exported for gob encoding.
type Fitted struct {
	Vocab map[string]int // term -> column index
	IDF   []float64      // per column
}

// Fit builds a vocabulary from docs and returns the fitted vectorizer.
// The vocabulary is capped at maxFeatures terms ranked by corpus frequency
// (ties broken lexically); column order is lexical for determinism.
func (v *Vectorizer) Fit(docs []string) *Fitted {
	df := make(map[string]int)    // documents containing term
	total := make(map[string]int) // corpus-wide occurrences
	seen := make(map[string]bool)
	for _, doc := range docs {
		clear(seen)
		for _, term := range Tokenize(doc) {
			total[term]++
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	if len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)

	n := len(docs)
	fitted := &Fitted{
		Vocab: make(map[string]int, len(terms)),
		IDF:   make([]float64, len(terms)),
	}
	for col, term := range terms {
		fitted.Vocab[term] = col
		// Smoothed IDF: no division by zero, no infinite weight for
		// terms present in every document.
		fitted.IDF[col] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}
	return fitted
}

// Dimensions returns the vocabulary size (vector width).
func (f *Fitted) Dimensions() int {
	return len(f.IDF)
}

// Transform vectorizes docs against the frozen vocabulary. Each row has one
// column per vocabulary term weighted tf*idf; empty documents and documents
// containing only out-of-vocabulary terms produce the zero vector.
func (f *Fitted) Transform(docs []string) [][]float32 {
	rows := make([][]float32, len(docs))
	for i, doc := range docs {
		rows[i] = f.TransformOne(doc)
	}
	return rows
}

// TransformOne vectorizes a single document.
func (f *Fitted) TransformOne(doc string) []float32 {
	row := make([]float32, len(f.IDF))
	for _, term := range Tokenize(doc) {
		if col, ok := f.Vocab[term]; ok {
			row[col] += float32(f.IDF[col])
		}
	}
	return row
}

// Encode serializes the fitted vectorizer as an opaque blob for the model registry.
func (f *Fitted) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("encode fitted vectorizer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode restores a fitted vectorizer from a registry blob.
func Decode(data []byte) (*Fitted, error) {
	var f Fitted
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fitted vectorizer: %w", err)
	}
	if len(f.Vocab) != len(f.IDF) {
		return nil, fmt.Errorf("decode fitted vectorizer: vocabulary/idf size mismatch (%d vs %d)", len(f.Vocab), len(f.IDF))
	}
	return &f, nil
}

// Tokenize lowercases text and splits it into letter/digit runs of length >= 2,
// dropping stop words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, tok := range fields {
		if len([]rune(tok)) < 2 || stopWords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
