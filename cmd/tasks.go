package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/logger"
	"github.com/campuskit/facemark/internal/notify"
	"github.com/campuskit/facemark/internal/schedule"
	"github.com/campuskit/facemark/internal/store"
	"github.com/campuskit/facemark/internal/store/mysql"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and run scheduled tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured task schedule",
	RunE:  runTasksList,
}

var tasksRunCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run one task immediately, ignoring its schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksRun,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksRunCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	tc, err := cfg.LoadTasks()
	if err != nil {
		return err
	}

	fmt.Printf("%-16s %-7s %-9s %s\n", "TASK", "TIME", "REPEAT", "ENABLED")
	for _, t := range tc.Tasks {
		fmt.Printf("%-16s %02d:%02d   %-9s %v\n", t.Name, t.Hour, t.Minute, t.Recurrence, t.Enabled)
	}
	return nil
}

func runTasksRun(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	log, err := logger.New(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	pool, err := mysql.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	mirror, err := store.NewMirror(cfg.CSVDir)
	if err != nil {
		return err
	}
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

	scheduler := schedule.New(registry, log, nil)
	summary, err := scheduler.RunNow(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(summary)
	return nil
}
