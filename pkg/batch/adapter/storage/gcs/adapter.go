// Package gcs provides a Google Cloud Storage implementation of storage.StorageConnection.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

const ProviderType = "gcs"

var Registration = storage.Registration{
	Type: ProviderType,
	New: func(ctx context.Context, name string, cfg storageconfig.StorageConfig) (storage.StorageConnection, error) {
		return NewGCSAdapter(ctx, cfg, name)
	},
}

// gcsAdapter stores objects in one bucket, below an optional name prefix.
type gcsAdapter struct {
	client *gcstorage.Client
	bucket *gcstorage.BucketHandle
	prefix string
	name   string
}

var _ storage.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a client for cfg.BucketName. Without CredentialsFile the
// application default credentials are used.
func NewGCSAdapter(ctx context.Context, cfg storageconfig.StorageConfig, name string, opts ...option.ClientOption) (storage.StorageConnection, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': bucket_name must be specified", name)
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	logger.Debugf("GCS storage adapter '%s' connected to bucket '%s'.", name, cfg.BucketName)
	return &gcsAdapter{
		client: client,
		bucket: client.Bucket(cfg.BucketName),
		prefix: strings.Trim(cfg.Prefix, "/"),
		name:   name,
	}, nil
}

func (a *gcsAdapter) Close() error { return a.client.Close() }
func (a *gcsAdapter) Type() string { return ProviderType }
func (a *gcsAdapter) Name() string { return a.name }

func (a *gcsAdapter) object(name string) string {
	name = strings.TrimPrefix(name, "/")
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

func (a *gcsAdapter) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := a.bucket.Object(a.object(name)).NewReader(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return nil, fmt.Errorf("open '%s': %w", a.object(name), storage.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object '%s': %w", a.object(name), err)
	}
	return r, nil
}

// Create rejects append: GCS objects are immutable once written.
func (a *gcsAdapter) Create(ctx context.Context, name string, append bool) (io.WriteCloser, error) {
	if append {
		return nil, fmt.Errorf("gcs object '%s': %w", a.object(name), storage.ErrAppendNotSupported)
	}
	w := a.bucket.Object(a.object(name)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	return w, nil
}

func (a *gcsAdapter) List(ctx context.Context, prefix string, fn func(name string) error) error {
	it := a.bucket.Objects(ctx, &gcstorage.Query{Prefix: a.object(prefix)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list objects with prefix '%s': %w", a.object(prefix), err)
		}
		name := attrs.Name
		if a.prefix != "" {
			name = strings.TrimPrefix(name, a.prefix+"/")
		}
		if err := fn(name); err != nil {
			return err
		}
	}
}

func (a *gcsAdapter) Delete(ctx context.Context, name string) error {
	err := a.bucket.Object(a.object(name)).Delete(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return fmt.Errorf("delete '%s': %w", a.object(name), storage.ErrObjectNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete object '%s': %w", a.object(name), err)
	}
	return nil
}

func (a *gcsAdapter) Exists(ctx context.Context, name string) (bool, error) {
	_, err := a.bucket.Object(a.object(name)).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gcstorage.ErrObjectNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat object '%s': %w", a.object(name), err)
	}
}
