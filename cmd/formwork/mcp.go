package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/formwork/pkg/adapters/mcp"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the definitions in the schemas directory as MCP tools, so AI
agents can check values before submitting them.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		env, err := loadEnvironment(cmd, map[string]string{"schemas.dir": "schemas"})
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		defer env.Close()

		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		defs, err := schema.LoadDir(env.cfg.Schemas.Dir)
		if err != nil {
			log.Fatalf("Error loading definitions: %v", err)
		}

		srv := mcp.NewServer(defs, env.registry, mcp.WithLogger(env.logger))

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			env.logger.Info("Starting Formwork MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				env.logger.Error("MCP Server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			env.logger.Info("Starting Formwork MCP Server (SSE)", "port", port)

			// Create a context that cancels on interrupt signal
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				env.logger.Error("MCP Server execution failed", "err", err)
				os.Exit(1)
			}
			env.logger.Info("MCP Server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().String("schemas", "./schemas", "Directory of form definitions")
}
