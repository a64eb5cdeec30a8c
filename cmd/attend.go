package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/campuskit/facemark/internal/attendance"
	"github.com/campuskit/facemark/internal/capture"
	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/dashboard"
	"github.com/campuskit/facemark/internal/gallery"
	"github.com/campuskit/facemark/internal/logger"
	"github.com/campuskit/facemark/internal/notify"
	"github.com/campuskit/facemark/internal/recognize"
	"github.com/campuskit/facemark/internal/schedule"
	"github.com/campuskit/facemark/internal/store"
	"github.com/campuskit/facemark/internal/store/mysql"
)

var attendCmd = &cobra.Command{
	Use:   "attend",
	Short: "Run the live attendance session",
	Long: `Open the camera and mark attendance for recognized students.
Runs the background task scheduler and the web dashboard alongside the
capture loop. Stop with Ctrl+C.`,
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)
	attendCmd.Flags().Bool("no-camera", false, "Run only the scheduler and dashboard, without a capture session")
}

func runAttend(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	noCamera, _ := cmd.Flags().GetBool("no-camera")

	log, err := logger.New(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	pool, err := mysql.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	encoder := recognize.NewEncoder(cfg.Recognition.CanvasSize)
	entries, err := pool.LoadGallery(ctx, encoder.Dim())
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	log.Info("gallery loaded with %d enrolled subjects", len(entries))

	roster, err := pool.ActiveRoster(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	mirror, err := store.NewMirror(cfg.CSVDir)
	if err != nil {
		return fmt.Errorf("failed to set up csv mirror: %w", err)
	}

	cutoff, err := attendance.ParseLateAfter(cfg.Attendance.LateAfter)
	if err != nil {
		return err
	}
	gate := attendance.NewGate(pool, mirror, log, cutoff)

	notifier, err := notify.FromConfig(&cfg.Notify, log)
	if err != nil {
		return err
	}
	mailer := notify.MailerFromConfig(&cfg.Mail, log)

	tc, err := cfg.LoadTasks()
	if err != nil {
		return err
	}
	registry, err := schedule.NewRegistry(tc, []schedule.Task{
		&schedule.AbsentAlertTask{Store: pool, Notifier: notifier},
		&schedule.ForceAbsentTask{Store: pool},
		&schedule.DailySummaryTask{Store: pool, Mailer: mailer, To: cfg.Mail.SummaryTo},
		&schedule.WeeklySummaryTask{Store: pool, Mailer: mailer, To: cfg.Mail.SummaryTo},
		&schedule.MonthlyRollupTask{Store: pool, Mirror: mirror},
	})
	if err != nil {
		return err
	}

	hub := dashboard.NewHub(log)
	go hub.Run()
	surface := dashboard.NewSurface(hub, log)

	scheduler := schedule.New(registry, log, surface.OnSchedulerLog)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// A nil loopDone channel blocks forever, which is what the no-camera
	// mode wants from the select below.
	var loop *capture.Loop
	var loopDone chan error
	if !noCamera {
		locator, err := recognize.NewCascadeLocator(cfg.Recognition.CascadePath)
		if err != nil {
			return err
		}
		defer locator.Close()

		loop = capture.NewLoop(capture.Options{
			Open:      func() (capture.FrameSource, error) { return capture.OpenWebcam(&cfg.Camera) },
			Locator:   locator,
			Encoder:   encoder,
			Gallery:   gallery.New(entries),
			Gate:      gate,
			Roster:    roster,
			Surface:   surface,
			Log:       log,
			Threshold: cfg.Recognition.Threshold,
			Every:     cfg.Recognition.ProcessEvery,
		})
		loopDone = make(chan error, 1)
		go func() {
			loopDone <- loop.Run(ctx)
			close(loopDone)
		}()
	}

	server := dashboard.NewServer(cfg.Dashboard.Addr, hub, pool, scheduler, registry, loop, log)
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sig:
		log.Info("shutdown signal received")
	case err := <-loopDone:
		if err != nil {
			log.Error("capture loop failed: %v", err)
			runErr = err
		}
	case err := <-serverDone:
		if err != nil {
			log.Error("dashboard failed: %v", err)
			runErr = err
		}
	}

	cancel()

	// Give the capture loop a bounded window to release the device.
	if loopDone != nil {
		select {
		case <-loopDone:
		case <-time.After(5 * time.Second):
			log.Warning("capture loop did not stop in time")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warning("dashboard shutdown: %v", err)
	}

	return runErr
}
