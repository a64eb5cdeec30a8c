// Package recognize implements the live recognition pipeline: face location,
// appearance encoding, and gallery matching.
package recognize

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/campuskit/facemark/internal/gallery"
)

// Encoder turns a face region into a fixed-length appearance fingerprint:
// resize to a square canvas, convert to grayscale, normalize to [0,1] and
// flatten. Deterministic for identical pixel input.
type Encoder struct {
	canvas int
}

func NewEncoder(canvasSize int) *Encoder {
	if canvasSize <= 0 {
		canvasSize = 128
	}
	return &Encoder{canvas: canvasSize}
}

// Dim returns the embedding length this encoder produces.
func (e *Encoder) Dim() int {
	return e.canvas * e.canvas
}

// Encode returns the embedding for a face region, or ok=false when the region
// is unusable (nil or empty).
func (e *Encoder) Encode(roi image.Image) (gallery.Embedding, bool) {
	if roi == nil {
		return nil, false
	}
	bounds := roi.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, false
	}

	resized := image.NewRGBA(image.Rect(0, 0, e.canvas, e.canvas))
	draw.BiLinear.Scale(resized, resized.Bounds(), roi, bounds, draw.Over, nil)

	emb := make(gallery.Embedding, 0, e.canvas*e.canvas)
	for y := 0; y < e.canvas; y++ {
		for x := 0; x < e.canvas; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			emb = append(emb, float32(luma/255.0))
		}
	}
	return emb, true
}
