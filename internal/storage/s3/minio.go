package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage"
)

var errBucketOwned = errors.New("bucket already owned by this account")

// minioClient adapts minio-go to the file-oriented client interface.
type minioClient struct {
	client *minio.Client
}

func dial(cfg Config) (*minioClient, error) {
	host, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	options := &minio.Options{
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		options.Creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		options.Creds = credentials.NewIAM("")
	}
	mc, err := minio.New(host, options)
	if err != nil {
		return nil, fmt.Errorf("create s3 client for %s: %w", host, err)
	}
	return &minioClient{client: mc}, nil
}

// parseEndpoint accepts "host:port" or an http(s) URL. An https URL forces TLS regardless of useSSL.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint URL: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint host is required")
	}
	switch parsed.Scheme {
	case "https":
		return parsed.Host, true, nil
	case "http":
		return parsed.Host, useSSL, nil
	default:
		return "", false, fmt.Errorf("unsupported endpoint scheme %q", parsed.Scheme)
	}
}

func (m *minioClient) UploadFile(ctx context.Context, bucket, key, localPath, contentType string) (storage.ObjectInfo, error) {
	uploaded, err := m.client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return storage.ObjectInfo{}, mapMinioErr(err)
	}
	return storage.ObjectInfo{Key: uploaded.Key, Size: uploaded.Size, ETag: uploaded.ETag, ContentType: contentType, LastModified: uploaded.LastModified}, nil
}

// DownloadFile relies on FGetObject writing to a partial file and renaming it when complete.
func (m *minioClient) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	return mapMinioErr(m.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}))
}

func (m *minioClient) Stat(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	obj, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return storage.ObjectInfo{}, mapMinioErr(err)
	}
	return storage.ObjectInfo{Key: obj.Key, Size: obj.Size, ETag: obj.ETag, ContentType: obj.ContentType, LastModified: obj.LastModified}, nil
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	return exists, mapMinioErr(err)
}

func (m *minioClient) CreateBucket(ctx context.Context, bucket, region string) error {
	return mapMinioErr(m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}))
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %v", storage.ErrAccessDenied, err)
	case "BucketAlreadyOwnedByYou":
		return errBucketOwned
	}
	return err
}
