package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	patternThreshold float64
	patternMinSize   int
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Detect repeated patterns across memories",
	Long: `Groups memories by blended lexical and semantic similarity and
reports the clusters, largest first. Clusters that reach the minimum
size are candidates for promotion into a durable skill.`,
	RunE: runPatterns,
}

func init() {
	patternsCmd.Flags().Float64Var(&patternThreshold, "threshold", 0.6, "similarity threshold for grouping")
	patternsCmd.Flags().IntVar(&patternMinSize, "min-size", 5, "minimum cluster size for skill candidates")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, _ []string) error {
	if patternService == nil {
		return errors.New("pattern service not configured")
	}
	ctx := context.Background()

	clusters, err := patternService.Clusters(ctx, patternThreshold)
	if err != nil {
		return fmt.Errorf("pattern detection failed: %w", err)
	}

	if len(clusters) == 0 {
		cmd.Println("No memories to cluster.")
		return nil
	}

	cmd.Println(headingStyle.Render("Clusters"))
	for i, c := range clusters {
		marker := " "
		if c.Size() >= patternMinSize {
			marker = okStyle.Render("*")
		}
		cmd.Printf("%s [%d] %s (%d members)\n", marker, i+1, c.Label, c.Size())
		if verbose {
			for _, m := range c.Members {
				cmd.Printf("      - %s\n", m.Title)
			}
		}
	}

	candidates := 0
	for _, c := range clusters {
		if c.Size() >= patternMinSize {
			candidates++
		}
	}
	cmd.Println()
	if candidates > 0 {
		cmd.Printf("%d cluster(s) marked * are skill candidates (size >= %d).\n", candidates, patternMinSize)
	} else {
		cmd.Printf("No clusters reached the skill-candidate size of %d.\n", patternMinSize)
	}
	return nil
}
