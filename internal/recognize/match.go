package recognize

import (
	"math"

	"github.com/campuskit/facemark/internal/gallery"
)

// MatchResult is the outcome of comparing one live embedding against the
// gallery. Matched is true only when the minimum distance beats the
// threshold; SubjectID and the display fields are populated only then.
type MatchResult struct {
	SubjectID   string
	DisplayName string
	GroupLabel  string
	Distance    float64
	Matched     bool
}

// Match scans the full gallery and keeps the minimum-distance candidate.
// There is no early exit. Equal minimum distances resolve to the lowest
// subject ID so the result does not depend on gallery iteration order.
// Returns no match when the live embedding is absent, the gallery is empty,
// or the minimum distance is not below the threshold.
func Match(live gallery.Embedding, entries []gallery.Entry, threshold float64) MatchResult {
	result := MatchResult{Distance: math.Inf(1)}
	if len(live) == 0 || len(entries) == 0 {
		return result
	}

	best := -1
	for i, entry := range entries {
		if len(entry.Embedding) == 0 {
			continue
		}
		d := gallery.EuclideanDistance(live, entry.Embedding)
		switch {
		case d < result.Distance:
			result.Distance = d
			best = i
		case d == result.Distance && best >= 0 && entry.SubjectID < entries[best].SubjectID:
			best = i
		}
	}

	if best < 0 || result.Distance >= threshold {
		return result
	}

	result.Matched = true
	result.SubjectID = entries[best].SubjectID
	result.DisplayName = entries[best].DisplayName
	result.GroupLabel = entries[best].GroupLabel
	return result
}

// Confidence derives a display percentage from a distance. It has no bearing
// on the match decision.
func Confidence(distance, threshold float64) int {
	if threshold <= 0 || math.IsInf(distance, 1) {
		return 0
	}
	conf := 100 - distance/threshold*100
	if conf < 0 {
		return 0
	}
	if conf > 100 {
		return 100
	}
	return int(conf)
}
