// Package cli provides the docchat command-line interface built on cobra.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Environment variables read at startup. A .env file in the working
// directory is loaded before they are consulted.
const (
	envDataDir           = "DOCCHAT_DATA_DIR"
	envEmbeddingProvider = "DOCCHAT_EMBEDDING_PROVIDER"
	envOpenAIAPIKey      = "OPENAI_API_KEY" //nolint:gosec // variable name, not a credential
)

// version is set by Execute.
var version = "dev"

// Services used by the commands. They are wired by bootstrap, or set
// directly by tests.
var (
	searchService   driving.SearchService
	documentService driving.DocumentService
	indexService    driving.IndexService
	settingsService driving.SettingsService

	// appSettings holds the settings loaded at bootstrap.
	appSettings domain.Settings

	// closers release resources opened by bootstrap.
	closers []func()
)

// Global flags.
var (
	verboseFlag  bool
	dataDirFlag  string
	noConfigFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Hybrid keyword and semantic search over document chunks",
	Long: `docchat stores document chunks produced by an external processing
pipeline and answers hybrid search requests over them.

Keyword relevance comes from a SQLite FTS5 index kept in step with every
chunk write. Semantic similarity comes from stored embeddings when an
embedding provider is configured. Results are fused with configurable
weights and served through this CLI, an HTTP API and an MCP server.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  bootstrap,
	PersistentPostRunE: shutdown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"directory holding the database (default ~/.docchat/data, or $"+envDataDir+")")
	rootCmd.PersistentFlags().BoolVar(&noConfigFlag, "no-config", false,
		"ignore ~/.docchat/config.toml and use built-in defaults")
}

// Execute runs the root command with the given build version. Long-running
// commands stop when ctx is cancelled.
func Execute(ctx context.Context, buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.ExecuteContext(ctx)
}

// bootstrap wires the services for the command being run. Commands that
// need no services, and runs where services were injected, skip wiring.
func bootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)

	if !needsServices(cmd) || servicesReady() {
		return nil
	}

	var configStore driven.ConfigStore
	if noConfigFlag {
		configStore = memory.NewConfigStore()
	} else {
		fileStore, err := file.NewConfigStore("")
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}
		configStore = fileStore
	}

	settingsSvc := services.NewSettingsService(configStore)
	settings, err := settingsSvc.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	applyEnvOverrides(settings)

	dataDir := dataDirFlag
	if dataDir == "" {
		dataDir = os.Getenv(envDataDir)
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("Database: %s", store.Path())

	aiResult := ai.Init(&settings.Embedding)
	for _, w := range aiResult.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: vector search disabled: %s\n", w)
	}

	indexSvc := services.NewIndexService(store.LexicalIndex())
	if settings.Index.BackfillOnStart {
		indexSvc.BackfillOnStartup(cmd.Context())
	}

	settingsService = settingsSvc
	indexService = indexSvc
	documentService = services.NewDocumentService(store.ChunkStore())
	searchService = services.NewSearchService(
		store.ChunkStore(),
		store.LexicalIndex(),
		store.VectorIndex(),
		aiResult.EmbeddingService,
		settings.Search,
	)
	appSettings = *settings

	closers = append(closers, aiResult.Close, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Closing store: %v", err)
		}
	})
	return nil
}

// shutdown releases resources opened by bootstrap.
func shutdown(_ *cobra.Command, _ []string) error {
	if len(closers) == 0 {
		return nil
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
	searchService, documentService, indexService, settingsService = nil, nil, nil, nil
	return nil
}

func servicesReady() bool {
	return searchService != nil && documentService != nil
}

// needsServices reports whether cmd touches the store or settings.
func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case versionCmd.Name(), "help", "completion":
			return false
		}
	}
	return true
}

// applyEnvOverrides lets the environment select the embedding provider
// and supply the OpenAI key without touching the config file.
func applyEnvOverrides(settings *domain.Settings) {
	if raw := strings.TrimSpace(os.Getenv(envEmbeddingProvider)); raw != "" {
		provider := domain.AIProvider(strings.ToLower(raw))
		if provider.IsValid() || provider == domain.AIProviderNone {
			if provider != settings.Embedding.Provider {
				settings.Embedding.Model = ""
			}
			settings.Embedding.Provider = provider
		} else {
			logger.Warn("Ignoring %s=%q: unknown provider", envEmbeddingProvider, raw)
		}
	}

	if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = os.Getenv(envOpenAIAPIKey)
	}
}
