package similarity

import (
	"math"
	"testing"
)

func buildIndex(t *testing.T, rows [][]float32, keys []string) *Index {
	t.Helper()
	entries := make([]Entry, len(rows))
	for i := range rows {
		entries[i] = Entry{Position: i, CourseID: int64(i + 1), CourseKey: keys[i]}
	}
	idx, err := NewIndex(entries, rows)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestNewIndex_lengthMismatch(t *testing.T) {
	_, err := NewIndex([]Entry{{Position: 0, CourseKey: "a"}}, nil)
	if err == nil {
		t.Fatal("expected error for entries/rows mismatch")
	}
}

func TestNewIndex_badPosition(t *testing.T) {
	entries := []Entry{{Position: 1, CourseKey: "a"}}
	if _, err := NewIndex(entries, [][]float32{{1}}); err == nil {
		t.Fatal("expected error for non-dense positions")
	}
}

func TestRank_order(t *testing.T) {
	idx := buildIndex(t, [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}, []string{"a", "b", "c"})

	results := idx.Rank([]float32{1, 0, 0}, -1)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Position != 0 || results[1].Position != 1 || results[2].Position != 2 {
		t.Errorf("order: %v", results)
	}
	if results[0].Score < 0.999 {
		t.Errorf("identical direction should score ~1, got %f", results[0].Score)
	}
}

func TestRank_exclude(t *testing.T) {
	idx := buildIndex(t, [][]float32{
		{1, 0},
		{1, 0},
	}, []string{"a", "b"})
	results := idx.Rank([]float32{1, 0}, 0)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Position != 1 {
		t.Errorf("excluded position returned: %v", results)
	}
}

func TestRank_zeroVectorScoresZero(t *testing.T) {
	idx := buildIndex(t, [][]float32{
		{0, 0},
		{1, 0},
	}, []string{"zero", "one"})

	// Zero query: everything scores 0, no NaN.
	for _, r := range idx.Rank([]float32{0, 0}, -1) {
		if math.IsNaN(r.Score) || r.Score != 0 {
			t.Errorf("zero query: got score %f", r.Score)
		}
	}

	// Zero row participates but scores 0.
	results := idx.Rank([]float32{1, 0}, -1)
	if len(results) != 2 {
		t.Fatalf("zero row must not be filtered, got %d results", len(results))
	}
	if results[1].Position != 0 || results[1].Score != 0 {
		t.Errorf("zero row should rank last with score 0: %v", results)
	}
}

func TestRank_tieBreaksByPosition(t *testing.T) {
	idx := buildIndex(t, [][]float32{
		{0, 1},
		{1, 0},
		{2, 0},
	}, []string{"a", "b", "c"})
	// Rows 1 and 2 are parallel to the query: identical cosine scores.
	results := idx.Rank([]float32{1, 0}, -1)
	if results[0].Position != 1 || results[1].Position != 2 {
		t.Errorf("ties must break by ascending position: %v", results)
	}
}

func TestRank_deterministic(t *testing.T) {
	idx := buildIndex(t, [][]float32{
		{0.3, 0.7, 0.1},
		{0.2, 0.2, 0.9},
		{0.5, 0.5, 0.5},
	}, []string{"a", "b", "c"})
	query := []float32{0.4, 0.4, 0.4}
	first := idx.Rank(query, -1)
	for i := 0; i < 5; i++ {
		again := idx.Rank(query, -1)
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: result %d differs: %v vs %v", i, j, again[j], first[j])
			}
		}
	}
}

func TestPositionByKey(t *testing.T) {
	idx := buildIndex(t, [][]float32{{1}, {2}}, []string{"a", "b"})
	if pos, ok := idx.PositionByKey("b"); !ok || pos != 1 {
		t.Errorf("PositionByKey(b) = %d, %v", pos, ok)
	}
	if _, ok := idx.PositionByKey("missing"); ok {
		t.Error("missing key should not resolve")
	}
}
