package objectstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
)

// Remote key prefixes
const (
	RawPrefix       = "raw_data/"
	ProcessedPrefix = "processed_data/"
)

// Store uploads objects to a remote bucket.
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Close() error
}

// Config selects and configures a remote backend.
type Config struct {
	// Provider is "gcs" or "minio". An empty provider disables remote mirroring.
	Provider        string
	Bucket          string
	CredentialsFile string
	Endpoint        string
	AccessKey       string
	SecretKey       string
	UseSSL          bool
}

// New creates the backend named by cfg.Provider. It returns (nil, nil) when the provider is empty.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "gcs":
		return NewGCSStore(ctx, cfg.Bucket, cfg.CredentialsFile)
	case "minio":
		return NewMinioStore(ctx, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL)
	default:
		return nil, fmt.Errorf("unsupported object store provider %q", cfg.Provider)
	}
}

// Key joins a prefix such as RawPrefix with the base name of a local file.
func Key(prefix, localPath string) string {
	return path.Join(prefix, filepath.Base(localPath))
}

// UploadFile streams a local file to key and returns the number of bytes sent.
func UploadFile(ctx context.Context, store Store, key, localPath string) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	if err := store.Upload(ctx, key, f, info.Size(), ContentType(localPath)); err != nil {
		return 0, fmt.Errorf("failed to upload %s to %s: %w", localPath, key, err)
	}

	return info.Size(), nil
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	switch ext := filepath.Ext(name); ext {
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
