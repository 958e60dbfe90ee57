package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
)

var (
	rememberContent  string
	rememberCategory string
	rememberProject  string
)

var rememberCmd = &cobra.Command{
	Use:   "remember [title]",
	Short: "Save a memory",
	Long: `Saves a structured note from the current development session.
The memory is indexed for keyword search immediately; the embedding is
generated inline when the model is available, or by the next backfill.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemember,
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberContent, "content", "c", "", "memory body (required)")
	rememberCmd.Flags().StringVar(&rememberCategory, "category", "note", "memory category")
	rememberCmd.Flags().StringVarP(&rememberProject, "project", "p", "", "project scope")
	_ = rememberCmd.MarkFlagRequired("content")
	rootCmd.AddCommand(rememberCmd)
}

func runRemember(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	memory := domain.Memory{
		Title:     strings.TrimSpace(args[0]),
		Content:   rememberContent,
		Category:  rememberCategory,
		ProjectID: rememberProject,
	}

	saved, embedded, err := memoryService.Remember(context.Background(), memory)
	if err != nil {
		return fmt.Errorf("remember failed: %w", err)
	}

	cmd.Printf("Saved %s\n", saved.ID)
	if !embedded {
		cmd.Println("Embedding deferred; run 'mnemo backfill' or wait for the next search.")
	}
	return nil
}
