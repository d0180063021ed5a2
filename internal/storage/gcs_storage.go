package storage

import (
	"context"
	"errors"
	"fmt"
	"genarchive/internal/config"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const firebaseDownloadBase = "https://firebasestorage.googleapis.com/v0/b"

// gcsStorage 写入 Google Cloud Storage，默认返回 Firebase 风格的下载地址。
type gcsStorage struct {
	client     *gcs.Client
	bucket     string
	prefix     string
	publicBase string
}

func NewGCSStorage(ctx context.Context, cfg config.Config) (Storage, error) {
	bucket := strings.TrimSpace(cfg.StorageGCSBucket)
	if bucket == "" {
		return nil, errors.New("storage: missing GCS bucket")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.StorageGCSCredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: create GCS client: %w", err)
	}

	publicBase := ""
	if configured := strings.TrimSpace(cfg.StoragePublicBaseURL); isAbsoluteURL(configured) {
		publicBase = strings.TrimRight(configured, "/")
	}

	return &gcsStorage{
		client:     client,
		bucket:     bucket,
		prefix:     trimPrefix(cfg.StorageGCSPrefix),
		publicBase: publicBase,
	}, nil
}

func (s *gcsStorage) Save(ctx context.Context, data []byte, opts SaveOptions) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty payload")
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	key := buildObjectPath(opts.Category, opts.BaseName, opts.Extension)
	if s.prefix != "" {
		key = joinPrefix(s.prefix, key)
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = detectContentType(opts.Extension)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer: %w", err)
	}

	return key, nil
}

func (s *gcsStorage) PublicURL(key string) string {
	if s.publicBase != "" {
		return joinURL(s.publicBase, key)
	}
	return firebaseDownloadURL(s.bucket, key)
}

func firebaseDownloadURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/o/%s?alt=media", firebaseDownloadBase, bucket, url.PathEscape(strings.TrimLeft(key, "/")))
}

var _ Storage = (*gcsStorage)(nil)
