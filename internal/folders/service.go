// Package folders provisions a client folder in S3-compatible storage for
// each new proposal client, so delivery photos and signed documents have a
// home before the event.
package folders

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// BaseURL is the browse URL clients open; the folder prefix is appended.
	BaseURL string
}

// Service creates per-client folder prefixes. A nil *Service is valid and
// means folder provisioning is disabled.
type Service struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// New connects to the configured S3 endpoint. Returns nil when no endpoint
// is configured.
func New(cfg Config) (*Service, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("folders: connect %s: %w", cfg.Endpoint, err)
	}

	return &Service{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// EnsureBucket creates the folder bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	if s == nil {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("folders: check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("folders: create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// EnsureClientFolder creates the client's folder prefix if missing and
// returns its browse URL. Object stores have no real directories, so a
// zero-byte marker object pins the prefix. Returns "" when disabled.
func (s *Service) EnsureClientFolder(ctx context.Context, clientName string) (string, error) {
	if s == nil {
		return "", nil
	}

	prefix := folderPrefix(clientName)
	if prefix == "" {
		return "", nil
	}
	marker := prefix + "/.folder"

	_, err := s.client.StatObject(ctx, s.bucket, marker, minio.StatObjectOptions{})
	if err != nil {
		_, err = s.client.PutObject(ctx, s.bucket, marker,
			strings.NewReader(""), 0,
			minio.PutObjectOptions{ContentType: "application/octet-stream"})
		if err != nil {
			return "", fmt.Errorf("folders: create %s: %w", marker, err)
		}
		log.Printf("folders: provisioned client folder %s/%s", s.bucket, prefix)
	}

	if s.baseURL == "" {
		return prefix, nil
	}
	return s.baseURL + "/" + prefix, nil
}

// folderPrefix turns a client name into a storage-safe folder name.
func folderPrefix(clientName string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(clientName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == ' ', r == '-', r == '_', r == '(', r == ')':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
