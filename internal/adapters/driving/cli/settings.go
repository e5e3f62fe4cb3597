package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// embeddingProviders are offered by the interactive provider prompt.
var embeddingProviders = []domain.AIProvider{
	domain.AIProviderOllama,
	domain.AIProviderOpenAI,
	domain.AIProviderNone,
}

var (
	embeddingProviderFlag string
	embeddingModelFlag    string
	embeddingAPIKeyFlag   string
	weightVectorFlag      float64
	weightTextFlag        float64
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure search defaults and the embedding provider.

Settings are stored in ~/.docchat/config.toml.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used for semantic search.

Without --provider the command prompts for each value. The API key is read
without echo when stdin is a terminal.

Examples:
  docchat settings embedding --provider ollama
  docchat settings embedding --provider openai --model text-embedding-3-large
  docchat settings embedding --provider none`,
	RunE: runSettingsEmbedding,
}

var settingsWeightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Set default fusion weights",
	Long: `Set the default weights applied to vector similarity and keyword
relevance. Each weight is clamped to [0,1]; they need not sum to 1.`,
	RunE: runSettingsWeights,
}

func init() {
	settingsEmbeddingCmd.Flags().StringVar(&embeddingProviderFlag, "provider", "", "provider: ollama, openai or none")
	settingsEmbeddingCmd.Flags().StringVar(&embeddingModelFlag, "model", "", "embedding model (default per provider)")
	settingsEmbeddingCmd.Flags().StringVar(&embeddingAPIKeyFlag, "api-key", "", "API key (prompted when required)")

	settingsWeightsCmd.Flags().Float64Var(&weightVectorFlag, "vector", domain.DefaultVectorWeight, "vector weight")
	settingsWeightsCmd.Flags().Float64Var(&weightTextFlag, "text", domain.DefaultTextWeight, "text weight")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsWeightsCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Default limit: %d\n", settings.Search.DefaultLimit)
	cmd.Printf("  Max limit: %d\n", settings.Search.MaxLimit)
	cmd.Printf("  Candidate limit: %d\n", settings.Search.CandidateLimit)
	cmd.Printf("  Weights: vector %.2f, text %.2f\n", settings.Search.Weights.Vector, settings.Search.Weights.Text)
	cmd.Printf("  Vector timeout: %s\n", settings.Search.VectorTimeout)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	if settings.Embedding.Provider.IsValid() {
		cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	}
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Backfill on start: %t\n", settings.Index.BackfillOnStart)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docchat settings embedding' to fix the embedding provider.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	provider := domain.AIProvider(strings.ToLower(strings.TrimSpace(embeddingProviderFlag)))
	model := embeddingModelFlag
	interactive := provider == ""

	if interactive {
		cmd.Println("Select Embedding Provider")
		for i, p := range embeddingProviders {
			cmd.Printf("  %d. %s\n", i+1, p.Description())
		}
		cmd.Print("\nEnter choice [1]: ")
		idx := parseChoice(readLine(reader), len(embeddingProviders), 1)
		provider = embeddingProviders[idx-1]

		if provider.IsValid() && model == "" {
			cmd.Print("Enter model name (blank for default): ")
			model = readLine(reader)
		}
	}

	if !provider.IsValid() && provider != domain.AIProviderNone {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, provider)
	}

	apiKey := embeddingAPIKeyFlag
	if provider.RequiresAPIKey() && apiKey == "" {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if provider == domain.AIProviderNone {
		cmd.Println("Embedding provider disabled. Search will use keyword relevance only.")
		return nil
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), settings.Embedding.Model)
	return nil
}

func runSettingsWeights(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	weights := settings.Search.Weights
	if cmd.Flags().Changed("vector") {
		weights.Vector = weightVectorFlag
	}
	if cmd.Flags().Changed("text") {
		weights.Text = weightTextFlag
	}

	if err := settingsService.SetWeights(weights); err != nil {
		return fmt.Errorf("failed to set weights: %w", err)
	}

	clamped := weights.Clamped()
	cmd.Printf("Default weights set: vector %.2f, text %.2f\n", clamped.Vector, clamped.Text)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when stdin is a terminal and
// falls back to a plain line read otherwise.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
