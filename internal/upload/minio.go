package upload

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"blockmark/internal/blocks"
)

// Minio stores images in an S3-compatible bucket.
type Minio struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes object URLs; defaults to the endpoint.
	PublicURL string
}

// NewMinio connects and creates the bucket if it does not exist.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		log.Printf("[UPLOAD] created bucket %s", cfg.Bucket)
	}

	public := cfg.PublicURL
	if public == "" {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		public = scheme + cfg.Endpoint
	}
	return &Minio{client: client, bucket: cfg.Bucket, publicURL: public}, nil
}

func (m *Minio) Upload(ctx context.Context, f blocks.File) *blocks.Task {
	return blocks.Go(func() (string, error) {
		return m.put(ctx, f)
	})
}

func (m *Minio) put(ctx context.Context, f blocks.File) (string, error) {
	name, contentType, err := prepare(f)
	if err != nil {
		return "", err
	}
	_, err = m.client.PutObject(ctx, m.bucket, name,
		bytes.NewReader(f.Data), int64(len(f.Data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: map[string]string{"filename": f.Name},
		},
	)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		log.Printf("[UPLOAD] minio put %s: code=%d msg=%s", name, resp.StatusCode, resp.Message)
		return "", fmt.Errorf("Upload failed: %w", err)
	}
	log.Printf("[UPLOAD] stored %s/%s (%d bytes)", m.bucket, name, len(f.Data))
	return joinURL(m.publicURL, m.bucket, name), nil
}
