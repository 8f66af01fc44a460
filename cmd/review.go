package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facelog/internal/config"
	"github.com/kozaktomas/facelog/internal/review"
	"github.com/kozaktomas/facelog/internal/video"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review [db-path]",
	Short: "Browse stored faces one by one",
	Long: `Shows every stored face in its own window, oldest first, captioned with its id,
the number of faces and its label. Press s to save the face as
<label>_ID_<id>.jpg, q to quit, any other key for the next face.

An optional positional argument opens that SQLite file instead of the
configured database.

Examples:
  facelog review
  facelog review archive.db --table faces_2023
  facelog review --label alice --scale 3 --save-dir picked/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().String("label", "", "Only show faces whose label contains this text")
	reviewCmd.Flags().String("save-dir", "", "Directory for saved faces (default: current directory)")
	reviewCmd.Flags().Int("scale", 0, "Enlarge faces this many times")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = args[0]
	}
	if dir := mustGetString(cmd, "save-dir"); dir != "" {
		cfg.Review.SaveDir = dir
	}
	if scale := mustGetInt(cmd, "scale"); scale > 0 {
		cfg.Review.Scale = scale
	}

	ctx := context.Background()

	store, err := openReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	browser := review.NewBrowser(store, video.ImageViewer{}, review.Options{
		SaveDir: cfg.Review.SaveDir,
		SaveKey: config.Key(cfg.Review.SaveKey),
		QuitKey: config.Key(cfg.Review.QuitKey),
		Label:   mustGetString(cmd, "label"),
		Scale:   cfg.Review.Scale,
	})

	result, err := browser.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Reviewed %d of %d faces, saved %d", result.Shown, result.Total, len(result.Saved))
	if result.Skipped > 0 {
		fmt.Printf(", %d unreadable", result.Skipped)
	}
	fmt.Println()
	return nil
}
