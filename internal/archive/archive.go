// Package archive keeps a copy of every raw webhook body in object storage
// for audit and replay.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"winetopia_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PayloadArchive stores raw payloads and returns the object key.
type PayloadArchive interface {
	Store(ctx context.Context, source string, body []byte) (string, error)
}

// NoopArchive discards payloads.
type NoopArchive struct{}

func (NoopArchive) Store(context.Context, string, []byte) (string, error) { return "", nil }

// MinIOArchive writes payloads to an S3-compatible bucket.
type MinIOArchive struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

var _ PayloadArchive = (*MinIOArchive)(nil)

// NewMinIOArchive creates the client. Call EnsureBucketExists before first use.
func NewMinIOArchive(cfg config.StorageConfig) (*MinIOArchive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOArchive{
		client: client,
		bucket: cfg.GetMinioBucketWebhookPayloads(),
		now:    time.Now,
	}, nil
}

// EnsureBucketExists creates the archive bucket if it doesn't exist.
func (a *MinIOArchive) EnsureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

func (a *MinIOArchive) Store(ctx context.Context, source string, body []byte) (string, error) {
	key := objectKey(source, a.now(), uuid.NewString())
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive payload %s: %w", key, err)
	}
	return key, nil
}

// objectKey lays payloads out as source/YYYY/MM/DD/<timestamp>-<id>.json.
func objectKey(source string, at time.Time, id string) string {
	at = at.UTC()
	return path.Join(source, at.Format("2006/01/02"), fmt.Sprintf("%s-%s.json", at.Format("150405.000"), id))
}
