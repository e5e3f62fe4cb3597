package cli

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

var (
	mcpPortFlag int
	mcpHostFlag string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search and documents to AI assistants",
	Long: `Serve the search_chunks and get_document tools and the docchat://documents
resources over the Model Context Protocol.

Without --port the server speaks JSON-RPC on stdin/stdout, which is what
desktop assistants expect when they launch docchat themselves:

  {
    "mcpServers": {
      "docchat": {"command": "/path/to/docchat", "args": ["mcp", "serve"]}
    }
  }

With --port it serves streamable HTTP instead, e.g. for the MCP Inspector:

  docchat mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPortFlag, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().StringVar(&mcpHostFlag, "host", "localhost", "HTTP bind host, used with --port")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}
	if mcpPortFlag < 0 || mcpPortFlag > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidInput, mcpPortFlag)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:   searchService,
		Document: documentService,
	}, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	if mcpPortFlag == 0 {
		// stdout carries the protocol; anything human-readable goes to stderr.
		return server.Run(cmd.Context())
	}

	addr := net.JoinHostPort(mcpHostFlag, strconv.Itoa(mcpPortFlag))
	fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
