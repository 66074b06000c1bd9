package main

import (
	"fmt"
	"os"

	"blockmark/internal/app"
)

const usage = `usage: blockmark [command]

Commands:
  serve            run the MCP server on stdin/stdout (default)
  pending          list destructive actions waiting for approval
  approve <id>     approve a pending action
  reject <id>      reject a pending action

Configuration is read from BLOCKMARK_* environment variables.
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve", "mcp":
		app.ServeMCP()
	case "pending", "approve", "reject":
		app.RunApprovals(os.Args[1:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
