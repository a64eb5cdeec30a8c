package recognize

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Locator finds face regions in a frame. Implementations never fail outward;
// an internal failure yields an empty result. No ordering guarantee.
type Locator interface {
	Locate(img image.Image) []image.Rectangle
	Close() error
}

// CascadeLocator detects faces with an OpenCV Haar cascade.
type CascadeLocator struct {
	classifier gocv.CascadeClassifier
	minSize    image.Point
}

// NewCascadeLocator loads the cascade XML at path.
func NewCascadeLocator(path string) (*CascadeLocator, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		_ = classifier.Close()
		return nil, fmt.Errorf("load cascade %s", path)
	}
	return &CascadeLocator{
		classifier: classifier,
		minSize:    image.Pt(60, 60), // ignore tiny detections
	}, nil
}

// Locate returns bounding boxes for faces in img, or nil on any internal
// failure.
func (l *CascadeLocator) Locate(img image.Image) []image.Rectangle {
	if img == nil {
		return nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	return l.classifier.DetectMultiScaleWithParams(
		gray, 1.1, 5, 0, l.minSize, image.Pt(0, 0),
	)
}

func (l *CascadeLocator) Close() error {
	return l.classifier.Close()
}
