package cmd

import (
	"fmt"

	"github.com/KaramelBytes/sheetcharts/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvListen   string
	srvProvider string
	srvModel    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (POST /analyze-sheet, /analyze, /resync)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if srvProvider != "" {
			c.Provider = srvProvider
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("refusing to start: %w", err)
		}
		svc, err := newService(c, runtimeOptions{ModelFlag: srvModel})
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if srvListen != "" {
			addr = srvListen
		}
		srv := server.New(svc, server.Options{CORSOrigins: c.CORSOrigins, Logger: logger})

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving on %s (model %s)\n", addr, selectModel(c, srvModel))
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvListen, "listen", "", "listen address (overrides config listen_addr)")
	serveCmd.Flags().StringVar(&srvProvider, "provider", "", "reasoning provider: openai|openrouter|ollama (overrides config)")
	serveCmd.Flags().StringVar(&srvModel, "model", "", "model name (overrides config)")
}
