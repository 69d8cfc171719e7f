package factory

import (
	"context"
	"fmt"

	"go-catfood-scanner/internal/config"
	"go-catfood-scanner/internal/storage"
)

// StorageType represents different types of photo storage backends
type StorageType string

const (
	// LocalStorage keeps photos on the local file system
	LocalStorage StorageType = "file"
	// AzureStorage keeps photos in Azure blob storage
	AzureStorage StorageType = "azure"
)

// StorageFactory creates photo stores
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.PhotoStore, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage builds a router that writes to the requested backend and can
// read file, blob and http(s) handles
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.PhotoStore, error) {
	files, err := storage.NewFileStore(f.cfg.PhotoDir)
	if err != nil {
		return nil, err
	}
	fetcher := storage.NewHTTPFetcher()
	readers := map[string]storage.PhotoStore{
		"file":  files,
		"http":  fetcher,
		"https": fetcher,
	}

	switch storageType {
	case LocalStorage:
		return storage.NewRouter(files, readers), nil
	case AzureStorage:
		blobs, err := storage.NewAzureStore(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, f.cfg.AzureContainerName)
		if err != nil {
			return nil, fmt.Errorf("creating azure store: %w", err)
		}
		if err := blobs.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		readers["azblob"] = blobs
		return storage.NewRouter(blobs, readers), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
