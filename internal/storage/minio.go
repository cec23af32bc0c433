package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/featuretoggle/featuretoggle/internal/config"
	"github.com/featuretoggle/featuretoggle/internal/toggle"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignTTL bounds the lifetime of export download links.
const PresignTTL = 15 * time.Minute

// MinIOStorage is a thin wrapper around the minio client. It stores package
// snapshots for the export endpoint.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket, now: func() time.Time { return time.Now().UTC() }}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Snapshot is the exported document.
type Snapshot struct {
	Package    string           `json:"package"`
	ExportedAt string           `json:"exported_at"`
	Count      int              `json:"count"`
	Toggles    []*toggle.Toggle `json:"toggles"`
}

func snapshotKey(pkg string, at time.Time) string {
	return fmt.Sprintf("%s/%s.json", url.PathEscape(pkg), at.UTC().Format("20060102T150405Z"))
}

func encodeSnapshot(pkg string, at time.Time, toggles []*toggle.Toggle) ([]byte, error) {
	if toggles == nil {
		toggles = []*toggle.Toggle{}
	}
	return json.MarshalIndent(Snapshot{
		Package:    pkg,
		ExportedAt: toggle.FormatDateTime(at),
		Count:      len(toggles),
		Toggles:    toggles,
	}, "", "  ")
}

// Export uploads a JSON snapshot of the package and returns its key and a
// presigned download URL.
func (s *MinIOStorage) Export(ctx context.Context, pkg string, toggles []*toggle.Toggle) (string, string, error) {
	at := s.now()
	body, err := encodeSnapshot(pkg, at, toggles)
	if err != nil {
		return "", "", fmt.Errorf("encode snapshot: %w", err)
	}
	key := snapshotKey(pkg, at)
	if err := s.UploadFile(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return "", "", fmt.Errorf("upload snapshot: %w", err)
	}
	u, err := s.GetPresignedURL(ctx, key, PresignTTL)
	if err != nil {
		return "", "", fmt.Errorf("presign snapshot: %w", err)
	}
	return key, u, nil
}

// UploadFile uploads data from reader to the configured bucket using the provided key.
func (s *MinIOStorage) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// GetPresignedURL returns a presigned GET URL valid for the given duration.
func (s *MinIOStorage) GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, make(url.Values))
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}
