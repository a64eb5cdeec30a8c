package gallery

import (
	"sync"

	"github.com/coder/hnsw"
)

const indexMaxNeighbors = 16

// DuplicateIndex is an HNSW index over gallery embeddings used at enrollment
// time to warn when a freshly captured face sits suspiciously close to an
// already enrolled subject. It plays no part in live match decisions, which
// always scan the full gallery.
type DuplicateIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
}

// BuildDuplicateIndex indexes all entries that carry an embedding.
func BuildDuplicateIndex(entries []Entry) *DuplicateIndex {
	g := hnsw.NewGraph[string]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(e.SubjectID, []float32(e.Embedding)))
	}

	return &DuplicateIndex{graph: g}
}

// Nearest returns the closest indexed subject and its Euclidean distance.
// ok is false when the index is empty or the query embedding is absent.
func (d *DuplicateIndex) Nearest(query Embedding) (subjectID string, distance float64, ok bool) {
	if len(query) == 0 {
		return "", 0, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	neighbors := d.graph.Search([]float32(query), 1)
	if len(neighbors) == 0 {
		return "", 0, false
	}

	n := neighbors[0]
	return n.Key, euclidean(query, n.Value), true
}

// Add indexes a single entry after a successful enrollment.
func (d *DuplicateIndex) Add(e Entry) {
	if len(e.Embedding) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.graph.Add(hnsw.MakeNode(e.SubjectID, []float32(e.Embedding)))
}
