package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"blockmark/internal/config"
	mcpserver "blockmark/internal/mcp"
)

// ServeMCP runs blockmark as an MCP server on stdin/stdout until the client
// disconnects or the process is interrupted.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	a, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close(ctx)
	a.Start(ctx)

	srv := mcpserver.New(mcpserver.Deps{
		Emitter:     a.Emitter(),
		Documents:   a.Documents(),
		Sessions:    a.Sessions(),
		Approvals:   a.Approvals(), // decided with `blockmark approve|reject`
		AutoApprove: cfg.AutoApprove,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("MCP server error: %v", err)
		}
	case <-ctx.Done():
		log.Println("[MCP] shutting down")
	}
}
