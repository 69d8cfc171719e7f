package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrReadOnly is returned by stores that cannot write
var ErrReadOnly = errors.New("storage: store is read-only")

// ErrPhotoNotFound is returned when a handle does not resolve to a photo
var ErrPhotoNotFound = errors.New("storage: photo not found")

// PhotoStore keeps captured photo bytes and addresses them by an opaque handle
type PhotoStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (handle string, err error)
	Get(ctx context.Context, handle string) ([]byte, error)
	Delete(ctx context.Context, handle string) error
}

// Router writes to a primary store and reads any handle by its scheme
type Router struct {
	primary PhotoStore
	readers map[string]PhotoStore
}

// NewRouter creates a router writing to primary.
// readers maps a handle scheme (file, azblob, http, https) to the store that reads it.
func NewRouter(primary PhotoStore, readers map[string]PhotoStore) *Router {
	r := &Router{primary: primary, readers: make(map[string]PhotoStore, len(readers))}
	for scheme, store := range readers {
		r.readers[strings.ToLower(scheme)] = store
	}
	return r
}

// Put stores the photo in the primary store
func (r *Router) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	return r.primary.Put(ctx, name, contentType, data)
}

// Get reads a photo from the store that owns the handle's scheme
func (r *Router) Get(ctx context.Context, handle string) ([]byte, error) {
	store, err := r.storeFor(handle)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, handle)
}

// Delete removes a photo through the store that owns the handle's scheme
func (r *Router) Delete(ctx context.Context, handle string) error {
	store, err := r.storeFor(handle)
	if err != nil {
		return err
	}
	return store.Delete(ctx, handle)
}

func (r *Router) storeFor(handle string) (PhotoStore, error) {
	u, err := url.Parse(handle)
	if err != nil {
		return nil, fmt.Errorf("invalid photo handle: %w", err)
	}
	store, ok := r.readers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("no store for scheme %q", u.Scheme)
	}
	return store, nil
}
