// Package capture runs the live recognition loop: frames come from a camera
// device, faces are located, encoded and matched on a throttled cadence, and
// matches are handed to the attendance gate.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/campuskit/facemark/internal/attendance"
	"github.com/campuskit/facemark/internal/gallery"
	"github.com/campuskit/facemark/internal/logger"
	"github.com/campuskit/facemark/internal/recognize"
	"github.com/campuskit/facemark/internal/store"
)

// State of the capture loop.
type State string

const (
	StateClosed   State = "closed"
	StateOpening  State = "opening"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Surface receives loop events for display. All methods may be called from
// the loop goroutine; implementations must not block.
type Surface interface {
	OnCaptureState(s State)
	OnAttendanceMarked(mark attendance.Mark, confidence int)
	PublishFrame(jpegFrame []byte)
}

// Encoder turns a face crop into an embedding. Satisfied by
// recognize.Encoder.
type Encoder interface {
	Encode(roi image.Image) (gallery.Embedding, bool)
}

// Loop drives the recognition pipeline over a frame source.
type Loop struct {
	open      func() (FrameSource, error)
	locator   recognize.Locator
	encoder   Encoder
	gallery   *gallery.Gallery
	gate      *attendance.Gate
	roster    map[string]store.Student
	surface   Surface
	log       *logger.Logger
	threshold float64
	every     int // run recognition every Nth frame

	mu       sync.Mutex
	state    State
	overlays []Overlay
}

// Options bundles the loop's collaborators.
type Options struct {
	Open      func() (FrameSource, error)
	Locator   recognize.Locator
	Encoder   Encoder
	Gallery   *gallery.Gallery
	Gate      *attendance.Gate
	Roster    []store.Student
	Surface   Surface
	Log       *logger.Logger
	Threshold float64
	Every     int
}

// NewLoop builds a loop in the closed state.
func NewLoop(opts Options) *Loop {
	every := opts.Every
	if every <= 0 {
		every = 3
	}
	roster := make(map[string]store.Student, len(opts.Roster))
	for _, s := range opts.Roster {
		roster[s.SubjectID] = s
	}
	return &Loop{
		open:      opts.Open,
		locator:   opts.Locator,
		encoder:   opts.Encoder,
		gallery:   opts.Gallery,
		gate:      opts.Gate,
		roster:    roster,
		surface:   opts.Surface,
		log:       opts.Log,
		threshold: opts.Threshold,
		every:     every,
		state:     StateClosed,
	}
}

// State returns the current loop state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	if l.surface != nil {
		l.surface.OnCaptureState(s)
	}
}

// Run opens the device and processes frames until the context is cancelled
// or the device fails. The device handle is released on every exit path.
// The session seen set is reset on each start.
func (l *Loop) Run(ctx context.Context) error {
	l.setState(StateOpening)
	source, err := l.open()
	if err != nil {
		l.setState(StateClosed)
		return fmt.Errorf("camera open failed: %w", err)
	}

	closeOnce := sync.Once{}
	release := func() {
		closeOnce.Do(func() {
			if cerr := source.Close(); cerr != nil {
				l.log.Warning("device release failed: %v", cerr)
			}
		})
	}
	defer release()
	defer l.setState(StateClosed)

	l.gate.Reset()
	l.setState(StateRunning)
	l.log.Info("capture session started")

	iteration := 0
	for {
		// The stop flag is polled once per iteration.
		select {
		case <-ctx.Done():
			l.setState(StateStopping)
			release()
			l.log.Info("capture session stopped")
			return nil
		default:
		}

		frame, ok := source.Read()
		if !ok {
			l.setState(StateStopping)
			release()
			return errors.New("camera read failed")
		}

		iteration++
		if iteration%l.every == 0 {
			l.recognizeFrame(ctx, frame)
		}

		l.publish(frame)
	}
}

// recognizeFrame runs the full pipeline on one frame and caches the
// resulting overlays for the in-between frames.
func (l *Loop) recognizeFrame(ctx context.Context, frame image.Image) {
	rects := l.locator.Locate(frame)
	entries := l.gallery.Entries()

	overlays := make([]Overlay, 0, len(rects))
	for _, r := range rects {
		overlays = append(overlays, l.processFace(ctx, frame, r, entries))
	}

	l.mu.Lock()
	l.overlays = overlays
	l.mu.Unlock()
}

// processFace handles a single detection. A panic in any stage skips this
// face only; the loop keeps running.
func (l *Loop) processFace(ctx context.Context, frame image.Image, r image.Rectangle, entries []gallery.Entry) (overlay Overlay) {
	overlay = Overlay{Rect: r, Label: "Unknown"}
	defer func() {
		if rec := recover(); rec != nil {
			l.log.Error("face pipeline panic: %v", rec)
			overlay = Overlay{Rect: r, Label: "Unknown"}
		}
	}()

	roi := cropFace(frame, r)
	emb, ok := l.encoder.Encode(roi)
	if !ok {
		return overlay
	}

	match := recognize.Match(emb, entries, l.threshold)
	if !match.Matched {
		return overlay
	}

	confidence := recognize.Confidence(match.Distance, l.threshold)
	overlay.Matched = true
	overlay.Label = fmt.Sprintf("%s (%d%%)", match.DisplayName, confidence)

	sub, ok := l.roster[match.SubjectID]
	if !ok {
		sub = store.Student{
			SubjectID:  match.SubjectID,
			FullName:   match.DisplayName,
			GroupLabel: match.GroupLabel,
		}
	}
	if mark, marked := l.gate.Mark(ctx, sub, time.Now()); marked && l.surface != nil {
		l.surface.OnAttendanceMarked(mark, confidence)
	}
	return overlay
}

// publish renders the cached overlays onto the frame and hands the JPEG to
// the surface.
func (l *Loop) publish(frame image.Image) {
	if l.surface == nil {
		return
	}
	l.mu.Lock()
	overlays := l.overlays
	l.mu.Unlock()

	rendered := DrawOverlays(frame, overlays)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rendered, &jpeg.Options{Quality: 80}); err != nil {
		l.log.Warning("frame encode failed: %v", err)
		return
	}
	l.surface.PublishFrame(buf.Bytes())
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func cropFace(frame image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(frame.Bounds())
	if r.Empty() {
		return nil
	}
	if si, ok := frame.(subImager); ok {
		return si.SubImage(r)
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			out.Set(x, y, frame.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return out
}
