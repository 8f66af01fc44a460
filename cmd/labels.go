package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/facelog/internal/database"
	"github.com/kozaktomas/facelog/internal/facematch"
	"github.com/spf13/cobra"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List stored labels with their number of sightings",
	Long: `Lists every label in the database in the order the identities were first
seen, with the number of stored sightings and when they were first and last seen.

Examples:
  facelog labels
  facelog labels --search person
  facelog labels --json`,
	Args: cobra.NoArgs,
	RunE: runLabels,
}

func init() {
	rootCmd.AddCommand(labelsCmd)

	labelsCmd.Flags().String("search", "", "Only list labels containing this text")
	labelsCmd.Flags().Bool("json", false, "Output as JSON")
}

// LabelOutput is one row of the labels listing
type LabelOutput struct {
	Label     string `json:"label"`
	Sightings int    `json:"sightings"`
	FirstID   int64  `json:"first_id"`
	FirstSeen string `json:"first_seen,omitempty"`
	LastSeen  string `json:"last_seen,omitempty"`
}

func runLabels(cmd *cobra.Command, args []string) error {
	search := mustGetString(cmd, "search")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	store, err := openReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.LabelCounts(ctx)
	if err != nil {
		return err
	}

	results := make([]LabelOutput, 0, len(counts))
	for _, c := range counts {
		if !facematch.LabelMatches(c.Label, search) {
			continue
		}
		results = append(results, LabelOutput{
			Label:     c.Label,
			Sightings: c.Count,
			FirstID:   c.FirstID,
			FirstSeen: formatSeen(c.FirstSeen),
			LastSeen:  formatSeen(c.LastSeen),
		})
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No labels found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tSIGHTINGS\tFIRST ID\tFIRST SEEN\tLAST SEEN")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", r.Label, r.Sightings, r.FirstID, r.FirstSeen, r.LastSeen)
	}
	w.Flush()

	fmt.Printf("\n%d labels\n", len(results))
	return nil
}

func formatSeen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return database.FormatTimestamp(t)
}
