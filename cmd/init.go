package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the faces table if it does not exist",
	Long: `Connects to the configured database and creates the faces table. An existing
table is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Faces table ready in %s, %d faces stored\n", describeStore(cfg), count)
	return nil
}
