package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/services"
)

// setupTestServices wires real services over in-memory stores and seeds
// doc-1 with three chunks. Package state is restored on cleanup.
func setupTestServices(t *testing.T) *memory.ChunkStore {
	t.Helper()

	prevSearch, prevDocument, prevIndex, prevSettings := searchService, documentService, indexService, settingsService
	prevAppSettings := appSettings

	store := memory.NewChunkStore()
	settingsSvc := services.NewSettingsService(memory.NewConfigStore())
	defaults := domain.DefaultSettings()

	searchService = services.NewSearchService(store, store, nil, nil, defaults.Search)
	documentService = services.NewDocumentService(store)
	indexService = services.NewIndexService(store)
	settingsService = settingsSvc
	appSettings = defaults

	t.Cleanup(func() {
		searchService, documentService, indexService, settingsService = prevSearch, prevDocument, prevIndex, prevSettings
		appSettings = prevAppSettings
	})

	ctx := context.Background()
	doc := &domain.Document{
		ID:        "doc-1",
		Filename:  "climate.pdf",
		Title:     "Climate Report",
		Author:    "Ada Lovelace",
		Topics:    []string{"energy", "climate"},
		PageCount: 2,
	}
	require.NoError(t, documentService.Save(ctx, doc))
	require.NoError(t, documentService.AddChunks(ctx, doc.ID, []domain.Chunk{
		{ID: "c1", PageNumber: 1, ChunkIndex: 0, Content: "Carbon emissions rose sharply"},
		{ID: "c2", PageNumber: 1, ChunkIndex: 1, Content: "Renewable energy adoption"},
		{ID: "c3", PageNumber: 2, ChunkIndex: 0, Content: "Carbon capture and carbon storage"},
	}))

	return store
}

// executeCommand runs the root command with args and returns its output.
// Flags of every command are reset first so runs do not leak into each other.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// executeCommandWithInput is executeCommand with stdin content.
func executeCommandWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(bytes.NewBufferString(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
