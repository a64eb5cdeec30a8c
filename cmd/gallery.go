package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/recognize"
	"github.com/campuskit/facemark/internal/store/mysql"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "List enrolled subjects and their encoding status",
	RunE:  runGallery,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
}

func runGallery(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := mysql.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	encoder := recognize.NewEncoder(cfg.Recognition.CanvasSize)

	roster, err := pool.ActiveRoster(ctx)
	if err != nil {
		return err
	}
	entries, err := pool.LoadGallery(ctx, encoder.Dim())
	if err != nil {
		return err
	}

	enrolled := make(map[string]bool, len(entries))
	for _, e := range entries {
		enrolled[e.SubjectID] = true
	}

	fmt.Printf("%-38s %-25s %-10s %s\n", "SUBJECT", "NAME", "GROUP", "FACE")
	for _, s := range roster {
		face := "missing"
		if enrolled[s.SubjectID] {
			face = "enrolled"
		}
		fmt.Printf("%-38s %-25s %-10s %s\n", s.SubjectID, s.FullName, s.GroupLabel, face)
	}
	fmt.Printf("\n%d active students, %d with a usable face encoding\n", len(roster), len(entries))
	return nil
}
