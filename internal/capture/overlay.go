package capture

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	matchedColor   = color.RGBA{G: 200, A: 255}
	unmatchedColor = color.RGBA{R: 200, A: 255}
)

// Overlay is one rendered detection: a bounding box plus a label.
type Overlay struct {
	Rect    image.Rectangle
	Label   string
	Matched bool
}

// DrawOverlays copies the frame and renders the overlays onto the copy. The
// loop calls this every frame with the most recent detections so visual
// feedback stays smooth between recognition passes.
func DrawOverlays(frame image.Image, overlays []Overlay) *image.RGBA {
	b := frame.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, frame, b.Min, draw.Src)

	for _, o := range overlays {
		c := unmatchedColor
		if o.Matched {
			c = matchedColor
		}
		drawBox(out, o.Rect.Intersect(b), c)
		if o.Label != "" {
			drawLabel(out, o.Rect, o.Label, c)
		}
	}
	return out
}

func drawBox(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	const thickness = 2
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, r.Min.Y+t, c)
			img.SetRGBA(x, r.Max.Y-1-t, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetRGBA(r.Min.X+t, y, c)
			img.SetRGBA(r.Max.X-1-t, y, c)
		}
	}
}

func drawLabel(img *image.RGBA, r image.Rectangle, label string, c color.RGBA) {
	y := r.Min.Y - 4
	if y < basicfont.Face7x13.Height {
		y = r.Max.Y + basicfont.Face7x13.Height
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(r.Min.X, y),
	}
	d.DrawString(label)
}
