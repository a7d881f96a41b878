//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage"
)

func TestSourceFileRoundTripAgainstMinIO(t *testing.T) {
	endpoint := strings.TrimSpace(os.Getenv("FLIGHTQ_TEST_S3_ENDPOINT"))
	if endpoint == "" {
		t.Skip("FLIGHTQ_TEST_S3_ENDPOINT is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, Config{
		Endpoint:         endpoint,
		Region:           "us-east-1",
		Bucket:           "flightq-it",
		AccessKeyID:      "minioadmin",
		SecretAccessKey:  "minioadmin",
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	payload := []byte("airlie_id,airline_name\n1,Aerolux\n")
	local := filepath.Join(t.TempDir(), "Airline ID to Name.csv")
	if err := os.WriteFile(local, payload, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	key, err := storage.SourceObjectKey("datasets/roundtrip", filepath.Base(local))
	if err != nil {
		t.Fatalf("SourceObjectKey() error = %v", err)
	}

	uploaded, err := store.Upload(ctx, key, local)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if uploaded.Size != int64(len(payload)) {
		t.Fatalf("Upload().Size = %d, want %d", uploaded.Size, len(payload))
	}

	target := filepath.Join(t.TempDir(), "copy.csv")
	info, err := store.Download(ctx, key, target)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if info.ContentType != "text/csv" {
		t.Fatalf("Download().ContentType = %q", info.ContentType)
	}
	downloaded, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !bytes.Equal(downloaded, payload) {
		t.Fatalf("downloaded = %q, want %q", downloaded, payload)
	}

	if _, err := store.Stat(ctx, "datasets/roundtrip/missing.csv"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() missing error = %v, want ErrObjectNotFound", err)
	}
}
