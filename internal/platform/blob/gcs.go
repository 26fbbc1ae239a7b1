package blob

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"bizdir/pkg/platform/sentinel"
)

const defaultGCSBaseURL = "https://storage.googleapis.com"

// GCSConfig configures the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	// PublicBaseURL overrides the public host, e.g. a CDN in front of the bucket.
	PublicBaseURL string
}

// GCSStore uploads objects to a Google Cloud Storage bucket.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCSStore opens a storage client. Without a credentials file it falls
// back to Application Default Credentials.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = defaultGCSBaseURL + "/" + cfg.Bucket
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, baseURL: base}, nil
}

// Put writes the object only if the key is unused.
func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("close gcs object %s: %w", key, err)
		}
		return "", fmt.Errorf("close gcs object %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return PublicURL(s.baseURL, key), nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
