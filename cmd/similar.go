package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/kozaktomas/facelog/internal/constants"
	"github.com/kozaktomas/facelog/internal/database"
	"github.com/spf13/cobra"
)

var similarCmd = &cobra.Command{
	Use:   "similar <id>",
	Short: "Find the stored sightings nearest to a given sighting",
	Long: `Builds an HNSW index over all stored fingerprints and lists the sightings
closest to the given one by euclidean distance. Sightings within the match
threshold are marked; they are the ones the capture matcher would accept.

Examples:
  facelog similar 42
  facelog similar 42 --limit 25 --threshold 0.5
  facelog similar 42 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Int("limit", constants.DefaultSimilarLimit, "Maximum number of results")
	similarCmd.Flags().Float64("threshold", -1, "Match threshold (default from MATCH_THRESHOLD)")
	similarCmd.Flags().Bool("json", false, "Output as JSON")
}

// SimilarFace is one neighbor of the source sighting
type SimilarFace struct {
	ID       int64   `json:"id"`
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
	Match    bool    `json:"match"`
}

// SimilarOutput is the JSON output of the similar command
type SimilarOutput struct {
	SourceID    int64         `json:"source_id"`
	SourceLabel string        `json:"source_label"`
	Threshold   float64       `json:"threshold"`
	Results     []SimilarFace `json:"results"`
	Count       int           `json:"count"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid face id %q: %w", args[0], err)
	}
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	threshold := cfg.Capture.Threshold
	if t := mustGetFloat64(cmd, "threshold"); t >= 0 {
		threshold = t
	}

	ctx := context.Background()

	store, err := openReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	if source == nil {
		return fmt.Errorf("face %d not found", id)
	}

	rows, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}

	index := database.NewGalleryIndex()
	if skipped := index.Build(rows); skipped > 0 {
		fmt.Fprintf(os.Stderr, "WARNING: %d faces with a different fingerprint size were not indexed\n", skipped)
	}

	// One extra neighbor: the source itself is always nearest.
	neighbors, err := index.Search(source.Embedding, limit+1)
	if err != nil {
		if errors.Is(err, database.ErrDimensionMismatch) {
			return fmt.Errorf("face %d cannot be compared with the indexed faces: %w", id, err)
		}
		return fmt.Errorf("failed to search index: %w", err)
	}

	results := make([]SimilarFace, 0, limit)
	for _, n := range neighbors {
		if n.ID == source.ID || len(results) >= limit {
			continue
		}
		results = append(results, SimilarFace{
			ID:       n.ID,
			Label:    n.Label,
			Distance: n.Distance,
			Match:    n.Distance <= threshold,
		})
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(SimilarOutput{
			SourceID:    source.ID,
			SourceLabel: source.Label,
			Threshold:   threshold,
			Results:     results,
			Count:       len(results),
		})
	}

	fmt.Printf("Face %d (%s), seen %s\n\n", source.ID, source.Label, database.FormatTimestamp(source.Timestamp))
	if len(results) == 0 {
		fmt.Println("No other faces stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tDISTANCE\tMATCH")
	for _, r := range results {
		match := ""
		if r.Match {
			match = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%s\n", r.ID, r.Label, r.Distance, match)
	}
	w.Flush()
	return nil
}
