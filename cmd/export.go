package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kozaktomas/facelog/internal/database"
	"github.com/kozaktomas/facelog/internal/review"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Write every stored face to a directory",
	Long: `Saves each stored face as <label>_ID_<id>.jpg into the given directory,
the same files 'facelog review' writes with the s key. Existing files are
overwritten.

Examples:
  facelog export faces/
  facelog export alice/ --label alice`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("label", "", "Only export faces whose label contains this text")
	exportCmd.Flags().Int("batch-size", database.DefaultPageSize, "Number of faces read from the database at once")
}

func runExport(cmd *cobra.Command, args []string) error {
	dir := args[0]
	label := mustGetString(cmd, "label")
	batchSize := mustGetInt(cmd, "batch-size")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	ctx := context.Background()

	store, err := openReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Println("No images found in the database.")
		return nil
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Exporting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var exported, failed int
	var afterID int64
	for {
		page, err := store.ListImagesPage(ctx, afterID, batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		for _, f := range review.Filter(page, label) {
			img, err := review.Decode(f)
			if err != nil {
				log.Printf("WARNING: %v, skipping", err)
				failed++
				continue
			}
			if err := review.Save(filepath.Join(dir, review.FileName(f.Label, f.ID)), img, 95); err != nil {
				log.Printf("WARNING: %v", err)
				failed++
				continue
			}
			exported++
		}
		_ = bar.Add(len(page))
	}
	_ = bar.Finish()

	fmt.Printf("\nExported %d faces to %s", exported, dir)
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
	return nil
}
