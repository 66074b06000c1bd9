package upload

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"blockmark/internal/blocks"
)

// Local writes images into a directory and serves them under baseURL.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Local{dir: dir, baseURL: baseURL}, nil
}

func (l *Local) Upload(ctx context.Context, f blocks.File) *blocks.Task {
	return blocks.Go(func() (string, error) {
		return l.save(ctx, f)
	})
}

func (l *Local) save(ctx context.Context, f blocks.File) (string, error) {
	name, _, err := prepare(f)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, f.Data, 0644); err != nil {
		log.Printf("[UPLOAD] write %s: %v", path, err)
		return "", fmt.Errorf("Upload failed: %w", err)
	}
	log.Printf("[UPLOAD] stored %s (%d bytes)", name, len(f.Data))
	if l.baseURL == "" {
		return "file://" + path, nil
	}
	return joinURL(l.baseURL, name), nil
}
