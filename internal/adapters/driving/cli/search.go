package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

var (
	searchLimit       int
	searchJSON        bool
	searchProject     string
	searchKeywordOnly bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored memories",
	Long: `Performs hybrid search across stored memories.
Combines keyword (BM25) and semantic (vector) search for best results.
Falls back to keyword-only when the embedding model is unavailable.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "restrict results to a project")
	searchCmd.Flags().BoolVar(&searchKeywordOnly, "keyword-only", false, "skip semantic search")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	ctx := context.Background()
	opts := domain.SearchOptions{
		Limit:       searchLimit,
		ProjectID:   searchProject,
		KeywordOnly: searchKeywordOnly,
	}

	results, err := searchService.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Memory.Title
		if title == "" {
			title = results[i].Memory.ID
		}

		cmd.Printf("  [%d] %s (%.1f, %s)\n", i+1, title, results[i].Score, results[i].Matched)
		if results[i].Memory.Category != "" {
			cmd.Printf("      Category: %s\n", results[i].Memory.Category)
		}
		if snippet := firstLine(results[i].Memory.Content); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

// firstLine returns the first line of text, truncated for display.
func firstLine(text string) string {
	const maxLen = 100
	for i, r := range text {
		if r == '\n' {
			text = text[:i]
			break
		}
	}
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}
