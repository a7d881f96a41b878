package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrAccessDenied    = errors.New("object store access denied")
	ErrUnsupportedFile = errors.New("unsupported source file type")
)

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// ObjectStore moves whole source files between local disk and a bucket.
// The warehouse downloads from it and the dataset generator uploads to it.
type ObjectStore interface {
	Upload(ctx context.Context, key, localPath string) (ObjectInfo, error)
	Download(ctx context.Context, key, localPath string) (ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// ContentTypeFor picks the upload content type from a source file extension.
func ContentTypeFor(fileName string) string {
	switch {
	case hasSuffixFold(fileName, ".parquet"):
		return "application/vnd.apache.parquet"
	case hasSuffixFold(fileName, ".csv"):
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// IsSourceFile reports whether the warehouse can load fileName.
func IsSourceFile(fileName string) bool {
	return hasSuffixFold(fileName, ".csv") || hasSuffixFold(fileName, ".parquet")
}

func hasSuffixFold(value, suffix string) bool {
	return len(value) >= len(suffix) && strings.EqualFold(value[len(value)-len(suffix):], suffix)
}
