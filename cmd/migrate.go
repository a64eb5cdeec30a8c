package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/store/mysql"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := mysql.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(context.Background()); err != nil {
		return err
	}
	fmt.Println("Schema is up to date")
	return nil
}
