// Package gallery holds the set of known subjects' embeddings loaded for a
// capture session, plus the versioned storage format for embeddings.
package gallery

// Embedding is a fixed-length appearance vector for one subject. It is a
// normalized grayscale pixel fingerprint, not a trained biometric embedding;
// callers must not assume pose or lighting invariance.
type Embedding []float32

// Entry is one known subject loaded from the store. Entries are immutable for
// the duration of a capture session.
type Entry struct {
	SubjectID   string
	DisplayName string
	GroupLabel  string
	Embedding   Embedding
}
