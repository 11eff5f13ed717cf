package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mfenderov/filingflow/pkg/models"
)

const (
	filingsPrefix   = "filings"
	documentsPrefix = "documents"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "filingflow"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client mirrors canonical filings into an S3/MinIO bucket.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ObjectKey maps a path relative to the canonical root to its object key.
func ObjectKey(rel string) string {
	return path.Join(filingsPrefix, filepath.ToSlash(rel))
}

// PutFiling uploads a canonical HTML file under key.
func (c *Client) PutFiling(ctx context.Context, key string, content []byte) error {
	_, err := c.minioClient.PutObject(ctx, c.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "text/html",
	})
	if err != nil {
		return fmt.Errorf("failed to put filing: %w", err)
	}
	return nil
}

// GetFiling downloads the object stored under key.
func (c *Client) GetFiling(ctx context.Context, key string) ([]byte, error) {
	object, err := c.minioClient.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get filing: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read filing: %w", err)
	}
	return data, nil
}

// ListFilings returns the keys of all mirrored filings under prefix, which
// is relative to the filings root (e.g. "AAPL/10-K").
func (c *Client) ListFilings(ctx context.Context, prefix string) ([]string, error) {
	full := ObjectKey(prefix)
	if !strings.HasSuffix(full, "/") {
		full += "/"
	}

	var keys []string
	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    full,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, ".html") {
			keys = append(keys, object.Key)
		}
	}
	return keys, nil
}

// PutDocument stores the filing document record next to the mirrored file.
func (c *Client) PutDocument(ctx context.Context, key string, doc models.FilingDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = c.minioClient.PutObject(ctx, c.bucket, documentKey(key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

// GetDocument reads the filing document record for key.
func (c *Client) GetDocument(ctx context.Context, key string) (*models.FilingDocument, error) {
	object, err := c.minioClient.GetObject(ctx, c.bucket, documentKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc models.FilingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &doc, nil
}

func documentKey(key string) string {
	return path.Join(documentsPrefix, strings.TrimPrefix(key, filingsPrefix+"/")) + ".json"
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
