package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show embedding and index status",
	Long: `Reports the embedding model state, how many memories have
embeddings, and whether the accelerated vector index is active.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if backfillService == nil || embeddingStore == nil {
		return errors.New("services not configured")
	}
	ctx := context.Background()

	cmd.Println(headingStyle.Render("Embedding model"))
	if embedderService == nil {
		cmd.Println("  " + warnStyle.Render("not configured") + " (keyword search only)")
	} else {
		status := embedderService.Status()
		switch {
		case status.Ready:
			cmd.Printf("  %s  %s\n", okStyle.Render("ready"), embedderService.ModelName())
		case status.Loading:
			cmd.Printf("  %s  %s\n", warnStyle.Render("loading"), embedderService.ModelName())
		case status.Err != "":
			cmd.Printf("  %s  %s\n", warnStyle.Render("error"), status.Err)
		default:
			cmd.Printf("  %s  %s (loads on first use)\n", dimStyle.Render("idle"), embedderService.ModelName())
		}
		cmd.Printf("  dimensions: %d\n", embedderService.Dimensions())
		if !status.LastUsedAt.IsZero() {
			cmd.Printf("  last used:  %s\n", status.LastUsedAt.Format("15:04:05"))
		}
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("Embedding coverage"))
	embedded, err := embeddingStore.Count(ctx)
	if err != nil {
		return err
	}
	missing, err := backfillService.MissingCount(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("  embedded: %d\n", embedded)
	if missing > 0 {
		cmd.Printf("  missing:  %s\n", warnStyle.Render(strconv.Itoa(missing)))
		cmd.Println(dimStyle.Render("  run 'mnemo backfill' to embed the rest"))
	} else {
		cmd.Printf("  missing:  0\n")
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("Vector index"))
	if vectorIndex == nil {
		cmd.Println("  " + warnStyle.Render("unavailable") + " (exact scan fallback)")
	} else {
		cmd.Printf("  %s  %d vectors\n", okStyle.Render("active"), vectorIndex.Count())
	}

	return nil
}
