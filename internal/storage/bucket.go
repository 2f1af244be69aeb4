// Package storage uploads profile pictures to Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cavision/internal/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const avatarPrefix = "profile-pictures/"

type objectWriter interface {
	NewWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser
}

type gcsWriter struct {
	client *storage.Client
}

func (g gcsWriter) NewWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=300"
	return w
}

type AvatarBucket struct {
	log           *logger.Logger
	writer        objectWriter
	bucket        string
	publicBaseURL string
	closer        io.Closer
}

// NewAvatarBucket connects with application default credentials.
func NewAvatarBucket(ctx context.Context, log *logger.Logger, bucket, publicBaseURL string) (*AvatarBucket, error) {
	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	b := newAvatarBucket(log, gcsWriter{client: client}, bucket, publicBaseURL)
	b.closer = client
	b.log.Info("Object storage initialized", "avatar_bucket", bucket, "public_base_url", b.publicBaseURL)
	return b, nil
}

func newAvatarBucket(log *logger.Logger, w objectWriter, bucket, publicBaseURL string) *AvatarBucket {
	if log == nil {
		log = logger.Nop()
	}
	return &AvatarBucket{
		log:           log.With("service", "AvatarBucket"),
		writer:        w,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

// UploadAvatar overwrites profile-pictures/{uid} and returns a cache-busted public URL.
func (b *AvatarBucket) UploadAvatar(ctx context.Context, userID, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key := avatarPrefix + userID
	w := b.writer.NewWriter(ctx, b.bucket, key, contentType)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return fmt.Sprintf("%s?v=%d", b.PublicURL(key), time.Now().Unix()), nil
}

func (b *AvatarBucket) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", b.publicBaseURL, b.bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucket, key)
}

func (b *AvatarBucket) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
