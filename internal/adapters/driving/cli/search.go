package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// snippetLength is the number of characters of chunk content shown per result.
const snippetLength = 160

var (
	searchType         string
	searchLimit        int
	searchOffset       int
	searchJSON         bool
	searchDocument     string
	searchVectorWeight float64
	searchTextWeight   float64
	searchFilters      []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs hybrid search across all stored chunks.
Combines keyword (BM25) relevance and semantic (vector) similarity with
configurable weights. Without an embedding provider the search falls back
to keyword results and the response is marked degraded.

Filters narrow the candidates before ranking:
  --filter author=lovelace --filter topics=energy,climate --filter min_page=3`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "hybrid", "search type: fulltext, vector or hybrid")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVarP(&searchDocument, "document", "d", "", "restrict results to one document")
	searchCmd.Flags().Float64Var(&searchVectorWeight, "vector-weight", domain.DefaultVectorWeight,
		"weight of vector similarity in [0,1]")
	searchCmd.Flags().Float64Var(&searchTextWeight, "text-weight", domain.DefaultTextWeight,
		"weight of keyword relevance in [0,1]")
	searchCmd.Flags().StringArrayVarP(&searchFilters, "filter", "f", nil, "filter as key=value (repeatable)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	st, err := domain.ParseSearchType(searchType)
	if err != nil {
		return err
	}

	filters, err := parseFilterFlags(searchFilters)
	if err != nil {
		return err
	}

	req := domain.SearchRequest{
		Query:      args[0],
		DocumentID: searchDocument,
		Limit:      searchLimit,
		Offset:     searchOffset,
		Type:       st,
		Filters:    filters,
	}
	// Unset weight flags defer to the configured defaults.
	if cmd.Flags().Changed("vector-weight") {
		req.VectorWeight = &searchVectorWeight
	}
	if cmd.Flags().Changed("text-weight") {
		req.TextWeight = &searchTextWeight
	}

	resp, err := searchService.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

// parseFilterFlags turns key=value pairs into a filter map. Topics accept
// a comma-separated list.
func parseFilterFlags(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil //nolint:nilnil // no filters
	}

	filters := make(map[string]any, len(raw))
	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: filter %q must be key=value", domain.ErrInvalidInput, pair)
		}
		if key == "topics" {
			var topics []any
			for _, t := range strings.Split(value, ",") {
				if t = strings.TrimSpace(t); t != "" {
					topics = append(topics, t)
				}
			}
			filters[key] = topics
			continue
		}
		filters[key] = strings.TrimSpace(value)
	}
	return filters, nil
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp.Degraded {
		cmd.Printf("Note: showing keyword results only (%s)\n\n", resp.DegradedReason)
	}

	if len(resp.Results) == 0 {
		if resp.Count > 0 {
			cmd.Printf("No results on this page (%d total).\n", resp.Count)
			return nil
		}
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results %d-%d of %d (%s):\n\n",
		resp.Offset+1, resp.Offset+len(resp.Results), resp.Count, resp.Type)
	for i := range resp.Results {
		r := &resp.Results[i]

		// Format: [N] Title, page P (Score)
		cmd.Printf("  [%d] %s, page %d (%.2f)\n", resp.Offset+i+1, r.Document.Title, r.PageNumber, r.Score)
		if len(r.SectionPath) > 0 {
			cmd.Printf("      %s\n", strings.Join(r.SectionPath, " > "))
		}
		cmd.Printf("      %s\n", truncate(collapseSpace(r.Content), snippetLength))
		cmd.Printf("      chunk %s  keyword %.2f  vector %.2f\n", r.ChunkID, r.LexicalScore, r.VectorScore)
		cmd.Println()
	}

	return nil
}

// truncate shortens s to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
