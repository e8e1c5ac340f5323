package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mkrab/famulus/internal/api"
)

var serveMCP bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve MCP tools on stdio")
}

func runServer() error {
	setupLogging()
	fmt.Fprintf(os.Stderr, "famulus version %s\n", version)

	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	token := rt.cfg.Server.AuthToken
	if token == "" {
		token = uuid.NewString()
		printWarning("no server.auth_token configured; generated one for this run")
		fmt.Fprintf(os.Stderr, "admin token: %s\n", token)
	}

	handler := api.NewAppHandler(api.AppDeps{
		Orch:        rt.orch,
		Policy:      rt.pol,
		Sessions:    rt.sessions,
		Quota:       rt.quota,
		TurnLogPath: rt.cfg.TurnLogPath(),
		ReviewPath:  rt.cfg.ReviewQueuePath(),
		Token:       token,
	})

	srv := &http.Server{
		Addr:    rt.cfg.Server.Addr,
		Handler: handler,
	}

	if serveMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Orch: rt.orch, Policy: rt.pol})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "mcp stdio server error: %v\n", err)
			}
		}()
		fmt.Fprintln(os.Stderr, "MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "famulus listening on %s (policy %s)\n", rt.cfg.Server.Addr, rt.pol.Version())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
