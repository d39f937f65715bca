package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sriharsha8991/adv-attack-simulation/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generation API over HTTP",
	Long: `Serve starts the HTTP API: GET /health for liveness and POST /generate
for two-phase ability generation. The server shuts down gracefully on
SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := api.NewServer(addr, a.engine(), a.logger)
	return server.ListenAndServe(ctx)
}
