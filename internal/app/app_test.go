package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"blockmark/internal/config"
	"blockmark/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DataDir:      dir,
		DBDriver:     "sqlite",
		UploadDir:    filepath.Join(dir, "uploads"),
		RedisChannel: "blockmark:events",
		Autosave:     "@every 30s",
		ImportDir:    filepath.Join(dir, "inbox"),
	}
}

func TestApp_StartAndClose(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Start(ctx)

	d, err := a.Documents().Create(ctx, "first")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := a.Sessions().Open(ctx, d.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	a.Close(ctx)
}

func TestApp_RejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "oracle"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestApprovalCommand(t *testing.T) {
	ctx := context.Background()
	db, err := storage.New(filepath.Join(t.TempDir(), "a.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	store := storage.NewApprovalStore(db)
	store.CreateApproval(ctx, &storage.Approval{ID: "x1", Tool: "delete_document", Description: "Delete \"Notes\""})

	var out bytes.Buffer
	if err := approvalCommand(ctx, store, []string{"pending"}, &out); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if !strings.Contains(out.String(), "x1") {
		t.Errorf("pending output = %q", out.String())
	}

	out.Reset()
	if err := approvalCommand(ctx, store, []string{"reject", "x1"}, &out); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if out.String() != "x1: rejected\n" {
		t.Errorf("output = %q", out.String())
	}
	if status, _ := store.ApprovalStatus(ctx, "x1"); status != storage.ApprovalRejected {
		t.Errorf("status = %q", status)
	}

	if err := approvalCommand(ctx, store, []string{"approve"}, &out); err == nil {
		t.Error("missing id should fail")
	}
	if err := approvalCommand(ctx, store, nil, &out); err == nil {
		t.Error("no command should fail")
	}
}
