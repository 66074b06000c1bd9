package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"blockmark/internal/config"
	"blockmark/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Approval CLI: decides destructive actions of a running server
// ─────────────────────────────────────────────────────────────

func openApprovals(cfg *config.Config) (*storage.DB, error) {
	if cfg.DBDriver == "mongodb" {
		return storage.New(filepath.Join(cfg.DataDir, "blockmark.db"))
	}
	a := &App{cfg: cfg}
	if _, err := a.openStore(context.Background()); err != nil {
		return nil, err
	}
	return a.db, nil
}

// RunApprovals handles `pending`, `approve <id>` and `reject <id>`.
func RunApprovals(args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := openApprovals(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := approvalCommand(context.Background(), storage.NewApprovalStore(db), args, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func approvalCommand(ctx context.Context, store *storage.ApprovalStore, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: pending | approve <id> | reject <id>")
	}
	switch args[0] {
	case "pending":
		pending, err := store.ListPendingApprovals(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(out, "no pending actions")
		}
		for _, p := range pending {
			fmt.Fprintf(out, "%s  %-16s %s\n", p.ID, p.Tool, p.Description)
		}
		return nil
	case "approve", "reject":
		if len(args) < 2 {
			return fmt.Errorf("usage: %s <id>", args[0])
		}
		if err := store.ResolveApproval(ctx, args[1], args[0] == "approve"); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %sd\n", args[1], args[0])
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
