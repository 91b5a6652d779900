package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCSFetcher downloads objects from one Cloud Storage bucket.
type GCSFetcher struct {
	svc    *storage.Service
	bucket string
}

// NewGCSFetcher creates a fetcher for bucket. credentialsJSON may be empty to
// use application default credentials.
func NewGCSFetcher(ctx context.Context, bucket, credentialsJSON string, opts ...option.ClientOption) (*GCSFetcher, error) {
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}
	return &GCSFetcher{svc: svc, bucket: bucket}, nil
}

// Fetch accepts either an object name or a gs://bucket/object URL.
func (f *GCSFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	bucket, object, err := f.split(path)
	if err != nil {
		return nil, err
	}

	resp, err := f.svc.Objects.Get(bucket, object).Context(ctx).Download()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("object gs://%s/%s does not exist", bucket, object)
		}
		return nil, fmt.Errorf("failed to download gs://%s/%s: %w", bucket, object, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	if len(data) > maxDocumentBytes {
		return nil, tooLarge(path, int64(len(data)))
	}
	return data, nil
}

func (f *GCSFetcher) split(path string) (string, string, error) {
	if rest, ok := strings.CutPrefix(path, "gs://"); ok {
		bucket, object, found := strings.Cut(rest, "/")
		if !found || bucket == "" || object == "" {
			return "", "", fmt.Errorf("invalid object URL %q", path)
		}
		return bucket, object, nil
	}
	object := strings.TrimPrefix(path, "/")
	if object == "" {
		return "", "", fmt.Errorf("invalid object path %q", path)
	}
	return f.bucket, object, nil
}
