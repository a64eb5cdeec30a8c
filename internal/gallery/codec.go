package gallery

import (
	"encoding/json"
	"fmt"
)

// CodecVersion is the current embedding storage format version. Stored rows
// with a different version are rejected rather than silently truncated.
const CodecVersion = 1

type encodedEmbedding struct {
	Version int       `json:"v"`
	Dim     int       `json:"dim"`
	Values  []float32 `json:"values"`
}

// MarshalEmbedding serializes an embedding into the versioned JSON format
// stored in the students table.
func MarshalEmbedding(e Embedding) ([]byte, error) {
	if len(e) == 0 {
		return nil, fmt.Errorf("refusing to marshal empty embedding")
	}
	data, err := json.Marshal(encodedEmbedding{
		Version: CodecVersion,
		Dim:     len(e),
		Values:  e,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return data, nil
}

// UnmarshalEmbedding parses a stored embedding and validates its schema.
// wantDim is the dimensionality the current encoder produces; rows written
// with a different canvas size are rejected.
func UnmarshalEmbedding(data []byte, wantDim int) (Embedding, error) {
	var enc encodedEmbedding
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}
	if enc.Version != CodecVersion {
		return nil, fmt.Errorf("embedding version %d not supported (want %d)", enc.Version, CodecVersion)
	}
	if enc.Dim != len(enc.Values) {
		return nil, fmt.Errorf("embedding length %d does not match declared dim %d", len(enc.Values), enc.Dim)
	}
	if wantDim > 0 && enc.Dim != wantDim {
		return nil, fmt.Errorf("embedding dim %d does not match encoder dim %d", enc.Dim, wantDim)
	}
	return Embedding(enc.Values), nil
}
