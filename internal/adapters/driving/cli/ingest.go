package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ingestRecord is one line of an ingest file: a document with its chunks.
type ingestRecord struct {
	domain.Document
	Chunks []domain.Chunk `json:"chunks,omitempty"`
}

var ingestContinueFlag bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.jsonl]",
	Short: "Load processed documents and chunks",
	Long: `Reads newline-delimited JSON records produced by the document
processing pipeline and stores them. Each record is a document object with
an optional "chunks" array. Use "-" to read from stdin.

Example record:
  {"id":"doc-1","filename":"report.pdf","title":"Annual Report","page_count":12,
   "chunks":[{"page_number":1,"chunk_index":0,"content":"...","embedding":[0.1,0.2]}]}`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestContinueFlag, "continue-on-error", false,
		"skip records that fail instead of stopping")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	var in io.Reader
	if args[0] == "-" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	docs, chunks, failed, err := ingest(cmd, in)
	cmd.Printf("Ingested %d documents, %d chunks", docs, chunks)
	if failed > 0 {
		cmd.Printf(" (%d records failed)", failed)
	}
	cmd.Println()
	return err
}

// ingest stores every record read from in and returns the counts.
func ingest(cmd *cobra.Command, in io.Reader) (docs, chunks, failed int, err error) {
	ctx := cmd.Context()
	dec := json.NewDecoder(in)

	for line := 1; ; line++ {
		var rec ingestRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return docs, chunks, failed, nil
			}
			// A malformed record leaves the decoder unusable.
			return docs, chunks, failed, fmt.Errorf("record %d: %w: %v", line, domain.ErrInvalidInput, err)
		}

		if err := storeRecord(cmd, &rec); err != nil {
			if !ingestContinueFlag {
				return docs, chunks, failed, fmt.Errorf("record %d: %w", line, err)
			}
			logger.Warn("Skipping record %d: %v", line, err)
			failed++
			continue
		}

		docs++
		chunks += len(rec.Chunks)
		logger.Debug("Stored document %s with %d chunks", rec.ID, len(rec.Chunks))

		if ctx.Err() != nil {
			return docs, chunks, failed, ctx.Err()
		}
	}
}

func storeRecord(cmd *cobra.Command, rec *ingestRecord) error {
	ctx := cmd.Context()
	doc := rec.Document
	if err := documentService.Import(ctx, &doc, rec.Chunks); err != nil {
		return fmt.Errorf("import document %s: %w", doc.ID, err)
	}
	rec.ID = doc.ID
	return nil
}
