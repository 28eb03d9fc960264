package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxghenis/imessage-mcp/internal/app"
	"github.com/maxghenis/imessage-mcp/internal/config"
	"github.com/maxghenis/imessage-mcp/internal/tools"
	"github.com/maxghenis/imessage-mcp/internal/web"
)

var (
	serveHTTP bool
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server over stdio for Claude Desktop and other MCP clients.

With --http, serve MCP over SSE at /mcp/sse instead, next to a JSON API
under /api/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		return RunServe(cmd.Context(), cfg, logger, serveHTTP)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveHTTP, "http", false, "serve MCP over SSE plus the JSON API instead of stdio")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default from config, 7007)")
}

func newMCPServer(a *app.App) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"imessage-mcp",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	tools.Register(s, a)
	return s
}

func RunServe(ctx context.Context, cfg *config.Config, logger zerolog.Logger, httpMode bool) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	if st := a.Status(ctx); !st.ChatDBReadable {
		logger.Warn().Str("error", st.ChatDBError).Msg("Messages database not readable, tools will fail until access is granted")
	}

	mcpSrv := newMCPServer(a)
	if !httpMode {
		logger.Info().Str("chat_db", cfg.Data.ChatDB).Msg("Serving MCP over stdio")
		return mcpserver.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
	}

	port := strconv.Itoa(cfg.Server.Port)

	// Create SSE transport for MCP, mounted at /mcp/
	sseSrv := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithBaseURL(fmt.Sprintf("http://localhost:%s", port)),
		mcpserver.WithStaticBasePath("/mcp"),
	)

	srv := &http.Server{Handler: web.APIHandler(a, logger, sseSrv)}
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", port, err)
	}
	go func() {
		logger.Info().Str("port", port).Msg("JSON API available at http://localhost:" + port + "/api/")
		logger.Info().Str("port", port).Msg("MCP SSE available at http://localhost:" + port + "/mcp/sse")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
