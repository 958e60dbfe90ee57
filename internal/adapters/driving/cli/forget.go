package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget [id]",
	Short: "Delete a memory",
	Long:  `Removes a memory along with its keyword index entry and embedding.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}

func runForget(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	if err := memoryService.Forget(context.Background(), args[0]); err != nil {
		return fmt.Errorf("forget failed: %w", err)
	}

	cmd.Printf("Forgot %s\n", args[0])
	return nil
}
