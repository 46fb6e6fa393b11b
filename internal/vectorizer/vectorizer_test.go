package vectorizer

import (
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("An Introduction to the Go programming language!")
	want := []string{"introduction", "go", "programming", "language"}
	if len(tokens) != len(want) {
		t.Fatalf("got %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, tokens[i], want[i])
		}
	}
}

func TestTokenize_dropsSingleChars(t *testing.T) {
	tokens := Tokenize("a b c go")
	if len(tokens) != 1 || tokens[0] != "go" {
		t.Errorf("got %v", tokens)
	}
}

func TestFit_smoothedIDF(t *testing.T) {
	docs := []string{
		"python data science",
		"python web development",
		"cloud computing",
	}
	fitted := New(0).Fit(docs)

	col, ok := fitted.Vocab["python"]
	if !ok {
		t.Fatal("python should be in vocabulary")
	}
	// idf = log((1+3)/(1+2)) + 1 for a term in 2 of 3 docs.
	want := math.Log(4.0/3.0) + 1
	if got := fitted.IDF[col]; math.Abs(got-want) > 1e-9 {
		t.Errorf("idf(python) = %f, want %f", got, want)
	}

	// A term present in every document keeps a finite positive weight.
	if c, ok := fitted.Vocab["cloud"]; ok {
		if fitted.IDF[c] <= 0 {
			t.Errorf("idf(cloud) = %f", fitted.IDF[c])
		}
	}
}

func TestFit_maxFeaturesCapByCorpusFrequency(t *testing.T) {
	docs := []string{
		"alpha alpha alpha beta beta gamma",
		"alpha beta delta",
	}
	fitted := New(2).Fit(docs)
	if fitted.Dimensions() != 2 {
		t.Fatalf("dimensions = %d, want 2", fitted.Dimensions())
	}
	if _, ok := fitted.Vocab["alpha"]; !ok {
		t.Error("alpha (most frequent) should survive the cap")
	}
	if _, ok := fitted.Vocab["beta"]; !ok {
		t.Error("beta (second most frequent) should survive the cap")
	}
}

func TestTransform_frozenVocabulary(t *testing.T) {
	fitted := New(0).Fit([]string{"go programming", "rust programming"})
	dims := fitted.Dimensions()

	// Out-of-vocabulary terms are dropped, never trigger a refit.
	row := fitted.TransformOne("haskell programming")
	if len(row) != dims {
		t.Fatalf("row width = %d, want %d", len(row), dims)
	}
	if fitted.Dimensions() != dims {
		t.Error("vocabulary must stay frozen after transform")
	}
	var nonzero int
	for _, w := range row {
		if w != 0 {
			nonzero++
		}
	}
	if nonzero != 1 {
		t.Errorf("expected only 'programming' to score, got %d nonzero columns", nonzero)
	}
}

func TestTransform_emptyDocumentIsZeroVector(t *testing.T) {
	fitted := New(0).Fit([]string{"go programming", ""})
	rows := fitted.Transform([]string{"", "go"})
	for _, w := range rows[0] {
		if w != 0 {
			t.Fatal("empty document must vectorize to the zero vector")
		}
	}
	var sum float32
	for _, w := range rows[1] {
		sum += w
	}
	if sum == 0 {
		t.Error("non-empty in-vocabulary document should have weight")
	}
}

func TestTransform_termFrequencyScales(t *testing.T) {
	fitted := New(0).Fit([]string{"go go tools", "web tools"})
	col := fitted.Vocab["go"]
	once := fitted.TransformOne("go")[col]
	twice := fitted.TransformOne("go go")[col]
	if math.Abs(float64(twice-2*once)) > 1e-6 {
		t.Errorf("tf scaling: once=%f twice=%f", once, twice)
	}
}

func TestEncodeDecode(t *testing.T) {
	fitted := New(0).Fit([]string{"machine learning basics", "deep learning"})
	blob, err := fitted.Encode()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Dimensions() != fitted.Dimensions() {
		t.Fatalf("dimensions: got %d, want %d", restored.Dimensions(), fitted.Dimensions())
	}
	a := fitted.TransformOne("machine learning")
	b := restored.TransformOne("machine learning")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("column %d differs after round trip: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestDecode_garbage(t *testing.T) {
	if _, err := Decode([]byte("not a gob blob")); err == nil {
		t.Error("expected decode error")
	}
}
