package capture

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/campuskit/facemark/internal/config"
)

// FrameSource produces frames for the capture loop. The loop closes the
// source exactly once, on every exit path.
type FrameSource interface {
	// Read returns the next frame. ok is false on a device read failure.
	Read() (frame image.Image, ok bool)
	Close() error
}

// Webcam reads frames from a local capture device through OpenCV.
type Webcam struct {
	device *gocv.VideoCapture
	mat    gocv.Mat
	once   sync.Once
}

// OpenWebcam opens the configured device. When the primary index fails the
// alternate index is tried once; both failures report the same way.
func OpenWebcam(cfg *config.CameraConfig) (*Webcam, error) {
	device, err := openDevice(cfg.Index, cfg)
	if err != nil {
		device, err = openDevice(cfg.FallbackIndex, cfg)
		if err != nil {
			return nil, fmt.Errorf("camera open failed (tried devices %d and %d)", cfg.Index, cfg.FallbackIndex)
		}
	}
	return &Webcam{device: device, mat: gocv.NewMat()}, nil
}

func openDevice(index int, cfg *config.CameraConfig) (*gocv.VideoCapture, error) {
	device, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, err
	}
	device.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	device.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	device.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))

	// Confirm the device actually delivers frames before reporting success.
	probe := gocv.NewMat()
	defer probe.Close()
	if ok := device.Read(&probe); !ok || probe.Empty() {
		_ = device.Close()
		return nil, fmt.Errorf("device %d opened but is not readable", index)
	}
	return device, nil
}

func (w *Webcam) Read() (image.Image, bool) {
	if ok := w.device.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, false
	}
	img, err := w.mat.ToImage()
	if err != nil {
		return nil, false
	}
	return img, true
}

// Close releases the device handle. Safe to call more than once.
func (w *Webcam) Close() error {
	var err error
	w.once.Do(func() {
		err = w.device.Close()
		_ = w.mat.Close()
	})
	return err
}
