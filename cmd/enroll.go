package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/campuskit/facemark/internal/capture"
	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/gallery"
	"github.com/campuskit/facemark/internal/recognize"
	"github.com/campuskit/facemark/internal/store"
	"github.com/campuskit/facemark/internal/store/mysql"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a student's face from the camera",
	Long: `Capture face samples from the camera, average them into one
appearance encoding and store it with the student record. The student
looks at the camera until enough clean single-face samples are collected.`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().String("id", "", "Subject ID (defaults to a generated UUID)")
	enrollCmd.Flags().String("name", "", "Full name (required)")
	enrollCmd.Flags().String("group", "", "Class or group label")
	enrollCmd.Flags().String("email", "", "Contact email")
	enrollCmd.Flags().String("phone", "", "Guardian phone number")
	enrollCmd.Flags().Int("samples", 15, "Number of face samples to capture")
	_ = enrollCmd.MarkFlagRequired("name")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	group, _ := cmd.Flags().GetString("group")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")
	samples, _ := cmd.Flags().GetInt("samples")

	if strings.TrimSpace(name) == "" {
		return errors.New("--name must not be empty")
	}
	if id == "" {
		id = uuid.NewString()
	}
	if samples <= 0 {
		samples = 15
	}

	pool, err := mysql.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	locator, err := recognize.NewCascadeLocator(cfg.Recognition.CascadePath)
	if err != nil {
		return err
	}
	defer locator.Close()

	encoder := recognize.NewEncoder(cfg.Recognition.CanvasSize)

	webcam, err := capture.OpenWebcam(&cfg.Camera)
	if err != nil {
		return err
	}
	defer webcam.Close()

	fmt.Printf("Enrolling %s (%s). Look at the camera...\n", name, id)
	avg, err := collectSamples(webcam, locator, encoder, samples)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Warn when the new face sits close to someone already enrolled.
	entries, err := pool.LoadGallery(ctx, encoder.Dim())
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	if len(entries) > 0 {
		index := gallery.BuildDuplicateIndex(entries)
		if nearest, dist, ok := index.Nearest(avg); ok && dist < cfg.Recognition.Threshold {
			fmt.Printf("Warning: this face is within matching distance (%.1f) of enrolled subject %s\n", dist, nearest)
		}
	}

	student := store.Student{
		SubjectID:  id,
		FullName:   name,
		GroupLabel: group,
		Email:      email,
		Phone:      phone,
		Active:     true,
	}
	if err := pool.RegisterStudent(ctx, student); err != nil {
		return err
	}
	if err := pool.SaveEncoding(ctx, id, avg); err != nil {
		return err
	}
	_ = pool.LogActivity(ctx, "cli", "enroll", fmt.Sprintf("enrolled %s (%s)", name, id))

	fmt.Printf("Enrolled %s with subject ID %s\n", name, id)
	return nil
}

// collectSamples reads frames until enough single-face samples are captured
// and returns the element-wise average embedding. Frames with zero or
// multiple faces are skipped so stray bystanders don't pollute the encoding.
func collectSamples(source capture.FrameSource, locator recognize.Locator, encoder *recognize.Encoder, samples int) (gallery.Embedding, error) {
	bar := progressbar.NewOptions(samples,
		progressbar.OptionSetDescription("Capturing face samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	sum := make([]float64, encoder.Dim())
	collected := 0
	misses := 0
	const maxMisses = 300

	for collected < samples {
		frame, ok := source.Read()
		if !ok {
			return nil, errors.New("camera read failed during enrollment")
		}

		rects := locator.Locate(frame)
		if len(rects) != 1 {
			misses++
			if misses > maxMisses {
				return nil, fmt.Errorf("gave up after %d frames without a clean single-face view", maxMisses)
			}
			continue
		}

		roi := frame
		if si, ok := frame.(interface {
			SubImage(r image.Rectangle) image.Image
		}); ok {
			roi = si.SubImage(rects[0].Intersect(frame.Bounds()))
		}
		emb, ok := encoder.Encode(roi)
		if !ok {
			misses++
			continue
		}

		for i, v := range emb {
			sum[i] += float64(v)
		}
		collected++
		_ = bar.Add(1)

		// Space samples out a little so they are not near-identical frames.
		time.Sleep(100 * time.Millisecond)
	}

	avg := make(gallery.Embedding, len(sum))
	for i, v := range sum {
		avg[i] = float32(v / float64(collected))
	}
	return avg, nil
}
