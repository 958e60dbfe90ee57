package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed memories that are missing vectors",
	Long: `Generates embeddings for every memory that does not have one yet.
Safe to re-run: a run with nothing missing processes zero records, and a
run that overlaps another joins it instead of duplicating work.`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	if backfillService == nil {
		return errors.New("backfill service not configured")
	}

	result, err := backfillService.Migrate(context.Background(), func(processed, total int) {
		cmd.Printf("\r  embedding %d/%d", processed, total)
	})
	if err != nil {
		cmd.Println()
		return fmt.Errorf("backfill failed: %w", err)
	}

	if result.Total == 0 {
		cmd.Println("Nothing to do: all memories have embeddings.")
		return nil
	}

	cmd.Println()
	cmd.Printf("Embedded %d of %d missing memories.\n", result.Processed, result.Total)
	if skipped := result.Total - result.Processed; skipped > 0 {
		cmd.Printf("%d could not be embedded; they will be retried next run.\n", skipped)
	}
	return nil
}
