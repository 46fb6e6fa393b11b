// Package similarity provides an in-memory cosine similarity index over
// TF-IDF rows with parallel course metadata.
package similarity

import (
	"fmt"
	"math"
	"sort"
)

// Entry pairs an index row with the course it was built from. Position is
// the row index into the matrix; entries are rebuilt wholesale on retrain,
// never patched in place.
type Entry struct {
	Position  int
	CourseID  int64
	CourseKey string
}

// Scored is a single ranking hit.
type Scored struct {
	Position int
	Score    float64
}

// Index holds fitted document vectors and their course metadata. An Index is
// immutable after construction; the engine swaps whole indexes on retrain.
type Index struct {
	entries []Entry
	rows    [][]float32
	norms   []float64
	byKey   map[string]int
}

// NewIndex builds an index from entries and their vector rows. The two must
// be the same length with entry positions matching row indices; a mismatch is
// a programming error in the caller's rebuild.
func NewIndex(entries []Entry, rows [][]float32) (*Index, error) {
	if len(entries) != len(rows) {
		return nil, fmt.Errorf("entries/rows length mismatch: %d vs %d", len(entries), len(rows))
	}
	byKey := make(map[string]int, len(entries))
	norms := make([]float64, len(rows))
	for i := range entries {
		if entries[i].Position != i {
			return nil, fmt.Errorf("entry %d has position %d", i, entries[i].Position)
		}
		byKey[entries[i].CourseKey] = i
		norms[i] = l2Norm(rows[i])
	}
	return &Index{entries: entries, rows: rows, norms: norms, byKey: byKey}, nil
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entry returns the entry at position.
func (idx *Index) Entry(position int) Entry {
	return idx.entries[position]
}

// PositionByKey returns the row position for a course key.
func (idx *Index) PositionByKey(key string) (int, bool) {
	pos, ok := idx.byKey[key]
	return pos, ok
}

// Rank scores query against every indexed row by cosine similarity and
// returns all positions ordered by descending score, ties broken by
// ascending position. Pass exclude = -1 to rank everything; otherwise that
// position is omitted so a document never matches itself.
func (idx *Index) Rank(query []float32, exclude int) []Scored {
	queryNorm := l2Norm(query)
	scored := make([]Scored, 0, len(idx.rows))
	for i, row := range idx.rows {
		if i == exclude {
			continue
		}
		scored = append(scored, Scored{Position: i, Score: cosine(query, row, queryNorm, idx.norms[i])})
	}
	sort.Slice(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Position < scored[b].Position
	})
	return scored
}

// cosine returns the cosine similarity given precomputed norms.
// The zero vector is defined to have similarity 0 with anything.
func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
