package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the keyword index",
	Long: `Inspect and repair the full-text index that backs keyword search.

Every chunk write keeps the index current. These commands cover databases
that were populated before the index existed or that were edited outside
docchat.`,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Compare chunk and index entry counts",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Index chunks missing from the keyword index",
	Long:  `Indexes every stored chunk when the index is empty. Safe to run repeatedly.`,
	Args:  cobra.NoArgs,
	RunE:  runIndexBackfill,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop and rebuild the keyword index",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

func init() {
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexBackfillCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	status, err := indexService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get index status: %w", err)
	}

	cmd.Printf("Chunks:        %d\n", status.Chunks)
	cmd.Printf("Index entries: %d\n", status.Entries)
	if status.InSync() {
		cmd.Println("Index is in sync.")
	} else {
		cmd.Println("Index is out of sync. Run 'docchat index backfill'.")
	}
	return nil
}

func runIndexBackfill(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	result, err := indexService.Backfill(cmd.Context())
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	printBackfillResult(cmd, result)
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	result, err := indexService.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	printBackfillResult(cmd, result)
	return nil
}

func printBackfillResult(cmd *cobra.Command, result domain.BackfillResult) {
	if result.Skipped {
		cmd.Printf("Index already holds %d entries, nothing to backfill.\n", result.Existing)
		return
	}
	cmd.Printf("Indexed %d chunks (%d entries before).\n", result.Indexed, result.Existing)
	if result.Failed > 0 {
		cmd.Printf("Failed: %d chunks\n", result.Failed)
	}
}
