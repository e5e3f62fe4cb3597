package cli

import (
	"github.com/spf13/cobra"

	httpapi "github.com/custodia-labs/docchat/internal/adapters/driving/http"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

var serveAddrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve search, document, chunk and index operations over HTTP.

The listen address defaults to server.addr from the config file (` + domain.DefaultServerAddr + `).
The server shuts down gracefully on interrupt.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "listen address (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	server, err := httpapi.NewServer(&httpapi.Ports{
		Search:   searchService,
		Document: documentService,
		Index:    indexService,
	}, version)
	if err != nil {
		return err
	}

	addr := serveAddrFlag
	if addr == "" {
		addr = appSettings.Server.Addr
	}
	if addr == "" {
		addr = domain.DefaultServerAddr
	}

	cmd.Printf("HTTP API listening on %s\n", addr)
	return server.Run(cmd.Context(), addr)
}
