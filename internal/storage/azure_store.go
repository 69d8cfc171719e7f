package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStore keeps photos in a blob container; handles look like azblob://container/blob
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore connects with a shared key
func NewAzureStore(accountName, accountKey, container string) (*AzureStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureStore{client: client, container: container}, nil
}

// EnsureContainer creates the container if it does not exist
func (s *AzureStore) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("creating container: %w", err)
	}
	return nil
}

// Put uploads the photo
func (s *AzureStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	_, err := s.client.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return blobHandle(s.container, name), nil
}

// Get downloads a photo
func (s *AzureStore) Get(ctx context.Context, handle string) ([]byte, error) {
	container, name, err := parseBlobHandle(handle)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	retryReader := resp.Body
	defer retryReader.Close()
	return io.ReadAll(retryReader)
}

// Delete removes a photo; a missing blob is not an error
func (s *AzureStore) Delete(ctx context.Context, handle string) error {
	container, name, err := parseBlobHandle(handle)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteBlob(ctx, container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

func blobHandle(container, name string) string {
	return (&url.URL{Scheme: "azblob", Host: container, Path: "/" + name}).String()
}

func parseBlobHandle(handle string) (container, name string, err error) {
	u, err := url.Parse(handle)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob handle: %w", err)
	}
	name = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "azblob" || u.Host == "" || name == "" {
		return "", "", fmt.Errorf("not a blob handle: %q", handle)
	}
	return u.Host, name, nil
}
