package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/zentra/emojigen/config"
)

// PutOptions carries the HTTP metadata stored alongside an object.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// ObjectStore is a bucket-scoped blob store that hands back public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) (string, error)
	Remove(ctx context.Context, key string) error
}

// New builds the object store selected by STORAGE_DRIVER.
func New(cfg *config.Config) (ObjectStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMinIO, "":
		return ConnectMinIO(cfg)
	case config.StorageDriverS3:
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func publicObjectURL(baseURL, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(baseURL, "/"), bucket, strings.TrimPrefix(key, "/"))
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
