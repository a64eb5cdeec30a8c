package gallery

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        Embedding
		b        Embedding
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        Embedding{0.1, 0.2, 0.3},
			b:        Embedding{0.1, 0.2, 0.3},
			expected: 0,
		},
		{
			name:     "unit distance",
			a:        Embedding{0, 0},
			b:        Embedding{1, 0},
			expected: 1,
		},
		{
			name:     "3-4-5 triangle",
			a:        Embedding{0, 0},
			b:        Embedding{3, 4},
			expected: 5,
		},
		{
			name:     "mismatched lengths use shorter prefix",
			a:        Embedding{1, 1, 99},
			b:        Embedding{1, 1},
			expected: 0,
		},
		{
			name:     "empty vectors",
			a:        Embedding{},
			b:        Embedding{1, 2},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EuclideanDistance(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("EuclideanDistance() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEuclideanDistance_Symmetric(t *testing.T) {
	a := Embedding{0.5, 0.25, 0.75, 0.1}
	b := Embedding{0.9, 0.05, 0.33, 0.6}

	if d1, d2 := EuclideanDistance(a, b), EuclideanDistance(b, a); d1 != d2 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestGallery_ReplaceIsAtomicSnapshot(t *testing.T) {
	g := New([]Entry{{SubjectID: "S1"}})

	first := g.Entries()
	g.Replace([]Entry{{SubjectID: "S2"}, {SubjectID: "S3"}})

	if len(first) != 1 || first[0].SubjectID != "S1" {
		t.Errorf("old snapshot mutated after Replace: %+v", first)
	}
	if g.Len() != 2 {
		t.Errorf("expected 2 entries after Replace, got %d", g.Len())
	}
}

func TestGallery_EntriesIsACopy(t *testing.T) {
	g := New([]Entry{{SubjectID: "S1", DisplayName: "Asha"}})

	snapshot := g.Entries()
	snapshot[0].DisplayName = "changed"

	if got := g.Entries()[0].DisplayName; got != "Asha" {
		t.Errorf("mutating snapshot leaked into gallery: %q", got)
	}
}

func TestDuplicateIndex(t *testing.T) {
	entries := []Entry{
		{SubjectID: "S1", Embedding: Embedding{0, 0, 0}},
		{SubjectID: "S2", Embedding: Embedding{1, 1, 1}},
		{SubjectID: "S3"}, // no embedding, skipped
	}
	idx := BuildDuplicateIndex(entries)

	id, dist, ok := idx.Nearest(Embedding{0.05, 0, 0})
	if !ok {
		t.Fatal("expected a nearest neighbor")
	}
	if id != "S1" {
		t.Errorf("expected nearest S1, got %s", id)
	}
	if math.Abs(dist-0.05) > 1e-6 {
		t.Errorf("expected distance 0.05, got %v", dist)
	}
}

func TestDuplicateIndex_EmptyQuery(t *testing.T) {
	idx := BuildDuplicateIndex([]Entry{{SubjectID: "S1", Embedding: Embedding{1}}})
	if _, _, ok := idx.Nearest(nil); ok {
		t.Error("expected ok=false for empty query")
	}
}

func TestDuplicateIndex_Add(t *testing.T) {
	idx := BuildDuplicateIndex(nil)
	idx.Add(Entry{SubjectID: "S9", Embedding: Embedding{2, 2}})

	id, _, ok := idx.Nearest(Embedding{2, 2})
	if !ok || id != "S9" {
		t.Errorf("expected S9 after Add, got %q ok=%v", id, ok)
	}
}
