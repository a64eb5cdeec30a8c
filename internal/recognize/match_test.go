package recognize

import (
	"math"
	"testing"

	"github.com/campuskit/facemark/internal/gallery"
)

func TestMatch_NoLiveEmbedding(t *testing.T) {
	entries := []gallery.Entry{{SubjectID: "S1", Embedding: gallery.Embedding{1, 2}}}

	res := Match(nil, entries, 10)

	if res.Matched {
		t.Error("expected no match for absent live embedding")
	}
	if !math.IsInf(res.Distance, 1) {
		t.Errorf("expected +Inf distance, got %v", res.Distance)
	}
}

func TestMatch_EmptyGallery(t *testing.T) {
	res := Match(gallery.Embedding{1, 2}, nil, 10)

	if res.Matched {
		t.Error("expected no match for empty gallery")
	}
	if res.SubjectID != "" {
		t.Errorf("expected empty subject ID, got %q", res.SubjectID)
	}
}

func TestMatch_IdenticalVector(t *testing.T) {
	e := gallery.Embedding{0.1, 0.9, 0.4}
	entries := []gallery.Entry{{SubjectID: "S1", DisplayName: "Asha", Embedding: e}}

	res := Match(e, entries, 1)

	if !res.Matched {
		t.Fatal("expected match for identical vector")
	}
	if res.Distance != 0 {
		t.Errorf("expected distance 0, got %v", res.Distance)
	}
	if res.SubjectID != "S1" || res.DisplayName != "Asha" {
		t.Errorf("unexpected match identity: %+v", res)
	}
}

func TestMatch_KeepsMinimumAcrossFullGallery(t *testing.T) {
	live := gallery.Embedding{0, 0}
	entries := []gallery.Entry{
		{SubjectID: "S1", Embedding: gallery.Embedding{3, 0}},
		{SubjectID: "S2", Embedding: gallery.Embedding{1, 0}},
		{SubjectID: "S3", Embedding: gallery.Embedding{2, 0}},
	}

	res := Match(live, entries, 10)

	if !res.Matched || res.SubjectID != "S2" {
		t.Errorf("expected S2 as minimum, got %+v", res)
	}
	if res.Distance != 1 {
		t.Errorf("expected distance 1, got %v", res.Distance)
	}
}

func TestMatch_ThresholdIsExclusive(t *testing.T) {
	live := gallery.Embedding{0, 0}
	entries := []gallery.Entry{{SubjectID: "S1", Embedding: gallery.Embedding{2, 0}}}

	// distance == threshold must not match
	if res := Match(live, entries, 2); res.Matched {
		t.Error("distance equal to threshold must not match")
	}
	if res := Match(live, entries, 2.001); !res.Matched {
		t.Error("distance below threshold must match")
	}
}

func TestMatch_TieBreaksOnLowestSubjectID(t *testing.T) {
	live := gallery.Embedding{0, 0}
	shared := gallery.Embedding{1, 0}

	// Same embedding under two IDs, in both iteration orders.
	forward := []gallery.Entry{
		{SubjectID: "S2", Embedding: shared},
		{SubjectID: "S1", Embedding: shared},
	}
	backward := []gallery.Entry{
		{SubjectID: "S1", Embedding: shared},
		{SubjectID: "S2", Embedding: shared},
	}

	if res := Match(live, forward, 10); res.SubjectID != "S1" {
		t.Errorf("forward order: expected S1, got %s", res.SubjectID)
	}
	if res := Match(live, backward, 10); res.SubjectID != "S1" {
		t.Errorf("backward order: expected S1, got %s", res.SubjectID)
	}
}

func TestMatch_SkipsEntriesWithoutEmbedding(t *testing.T) {
	live := gallery.Embedding{0, 0}
	entries := []gallery.Entry{
		{SubjectID: "S1"},
		{SubjectID: "S2", Embedding: gallery.Embedding{1, 0}},
	}

	res := Match(live, entries, 10)
	if !res.Matched || res.SubjectID != "S2" {
		t.Errorf("expected S2, got %+v", res)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		distance  float64
		threshold float64
		expected  int
	}{
		{"exact match", 0, 50, 100},
		{"half threshold", 25, 50, 50},
		{"at threshold", 50, 50, 0},
		{"beyond threshold clamps to zero", 120, 50, 0},
		{"infinite distance", math.Inf(1), 50, 0},
		{"zero threshold", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(tt.distance, tt.threshold); got != tt.expected {
				t.Errorf("Confidence(%v, %v) = %d, want %d", tt.distance, tt.threshold, got, tt.expected)
			}
		})
	}
}
