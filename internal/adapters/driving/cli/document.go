package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage stored documents",
	Long:  `List, view, or delete stored documents and their chunks.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "List the chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long:  `Removes a document together with its chunks, index entries and embeddings.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var chunkDeleteCmd = &cobra.Command{
	Use:   "delete-chunk [chunk-id]",
	Short: "Delete a single chunk",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunkDelete,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentChunksCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(chunkDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title: %s\n", docs[i].Info().Title)
		if docs[i].Author != "" {
			cmd.Printf("    Author: %s\n", docs[i].Author)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := cmd.Context()
	doc, err := documentService.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	chunks, err := documentService.GetChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	info := doc.Info()
	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", info.Title)
	cmd.Printf("  File:     %s\n", doc.Filename)
	cmd.Printf("  Author:   %s\n", info.Author)
	cmd.Printf("  Type:     %s\n", info.DocumentType)
	if doc.Language != "" {
		cmd.Printf("  Language: %s\n", doc.Language)
	}
	if len(doc.Topics) > 0 {
		cmd.Printf("  Topics:   %s\n", strings.Join(doc.Topics, ", "))
	}
	cmd.Printf("  Pages:    %d\n", doc.PageCount)
	cmd.Printf("  Chunks:   %d\n", len(chunks))
	if doc.CreationDate != nil {
		cmd.Printf("  Authored: %s\n", doc.CreationDate.Format("2006-01-02"))
	}
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format(timeLayout))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format(timeLayout))

	if doc.Summary != "" {
		cmd.Printf("\n  %s\n", doc.Summary)
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	content, err := documentService.GetContent(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(content)
	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	chunks, err := documentService.GetChunks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Printf("Document %s has no chunks.\n", args[0])
		return nil
	}

	for i := range chunks {
		c := &chunks[i]
		embedded := "no"
		if len(c.Embedding) > 0 {
			embedded = fmt.Sprintf("%d dims", len(c.Embedding))
		}
		cmd.Printf("  %s  page %d #%d  [%s]  embedding: %s\n", c.ID, c.PageNumber, c.ChunkIndex, c.ContentType, embedded)
		cmd.Printf("      %s\n", truncate(collapseSpace(c.Content), snippetLength))
	}

	cmd.Printf("\nTotal: %d chunks\n", len(chunks))
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}

func runChunkDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.DeleteChunk(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete chunk: %w", err)
	}

	cmd.Printf("Chunk %s deleted.\n", args[0])
	return nil
}
