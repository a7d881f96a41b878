package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage"
)

type Config struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// FromSettings maps the object store section of the service configuration.
func FromSettings(cfg config.ObjectStoreConfig) Config {
	return Config{
		Endpoint:         cfg.Endpoint,
		Region:           cfg.Region,
		Bucket:           cfg.Bucket,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  cfg.SecretAccessKey,
		UseSSL:           cfg.UseSSL,
		Prefix:           cfg.Prefix,
		AutoCreateBucket: cfg.AutoCreateBucket,
	}
}

type client interface {
	UploadFile(ctx context.Context, bucket, key, localPath, contentType string) (storage.ObjectInfo, error)
	DownloadFile(ctx context.Context, bucket, key, localPath string) error
	Stat(ctx context.Context, bucket, key string) (storage.ObjectInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, region string) error
}

// Store keeps dataset source files in an S3-compatible bucket, under an optional key prefix.
type Store struct {
	client client
	bucket string
	prefix string
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.Endpoint) == "":
		return fmt.Errorf("s3 endpoint is required")
	case strings.TrimSpace(c.Bucket) == "":
		return fmt.Errorf("s3 bucket is required")
	case (c.AccessKeyID == "") != (c.SecretAccessKey == ""):
		return fmt.Errorf("s3 access key and secret key must be set together")
	}
	return nil
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	mc, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	store := &Store{client: mc, bucket: strings.TrimSpace(cfg.Bucket), prefix: cleanPrefix(cfg.Prefix)}
	if cfg.AutoCreateBucket {
		if err := store.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func NewWithClient(bucket, prefix string, c client) (*Store, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Store{client: c, bucket: strings.TrimSpace(bucket), prefix: cleanPrefix(prefix)}, nil
}

// Upload stores a local CSV or Parquet file under key.
func (s *Store) Upload(ctx context.Context, key, localPath string) (storage.ObjectInfo, error) {
	if !storage.IsSourceFile(localPath) {
		return storage.ObjectInfo{}, fmt.Errorf("%w: %s", storage.ErrUnsupportedFile, filepath.Base(localPath))
	}
	objectKey, err := s.objectKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.client.UploadFile(ctx, s.bucket, objectKey, localPath, storage.ContentTypeFor(localPath))
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload %q to %s/%s: %w", localPath, s.bucket, objectKey, err)
	}
	return info, nil
}

// Download writes the object at key to localPath and returns the object's metadata.
func (s *Store) Download(ctx context.Context, key, localPath string) (storage.ObjectInfo, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.client.Stat(ctx, s.bucket, objectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.ObjectInfo{}, fmt.Errorf("%w: %s/%s", storage.ErrObjectNotFound, s.bucket, objectKey)
		}
		return storage.ObjectInfo{}, fmt.Errorf("stat %s/%s: %w", s.bucket, objectKey, err)
	}
	if err := s.client.DownloadFile(ctx, s.bucket, objectKey, localPath); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("download %s/%s: %w", s.bucket, objectKey, err)
	}
	return info, nil
}

func (s *Store) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.client.Stat(ctx, s.bucket, objectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.ObjectInfo{}, fmt.Errorf("%w: %s/%s", storage.ErrObjectNotFound, s.bucket, objectKey)
		}
		return storage.ObjectInfo{}, fmt.Errorf("stat %s/%s: %w", s.bucket, objectKey, err)
	}
	return info, nil
}

// ensureBucket creates the bucket when missing. Losing a creation race to another replica is fine.
func (s *Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.CreateBucket(ctx, s.bucket, region); err != nil && !errors.Is(err, errBucketOwned) {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// objectKey validates key like any source key and places it under the store prefix.
func (s *Store) objectKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	dir, file := path.Split(key)
	validated, err := storage.SourceObjectKey(dir, file)
	if err != nil {
		return "", fmt.Errorf("invalid object key %q: %w", key, err)
	}
	if s.prefix == "" {
		return validated, nil
	}
	return path.Join(s.prefix, validated), nil
}

func cleanPrefix(prefix string) string {
	prefix = path.Clean("/" + strings.TrimSpace(prefix))
	return strings.TrimPrefix(prefix, "/")
}
