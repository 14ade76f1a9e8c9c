package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// SplitURI splits gs://bucket/path/to/object into its bucket and object
// parts.
func SplitURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// Upload copies a local file to the given gs:// destination. It assumes
// Application Default Credentials are configured.
func Upload(ctx context.Context, gcsURI, filePath string) error {
	bucket, object, err := SplitURI(gcsURI)
	if err != nil {
		return fmt.Errorf("Upload: %w", err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("Upload: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	defer func() {
		// Ensure the writer is closed even on early returns.
		_ = w.Close()
	}()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("Upload: copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize upload: %w", err)
	}
	return nil
}
