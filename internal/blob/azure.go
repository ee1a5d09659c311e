package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	blobsdk "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStore reads and writes blobs in one container of an Azure storage
// account.  The underlying client is safe for concurrent use.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureClient builds a client from a storage account connection string.
func NewAzureClient(connString string) (*azblob.Client, error) {
	client, err := azblob.NewClientFromConnectionString(connString, nil)
	if err != nil {
		return nil, fmt.Errorf("azblob client: %w", err)
	}
	return client, nil
}

// NewAzureStore binds client to container.
func NewAzureStore(client *azblob.Client, container string) *AzureStore {
	return &AzureStore{client: client, container: container}
}

// Container returns the container name this store writes to.
func (s *AzureStore) Container() string { return s.container }

func (s *AzureStore) Properties(ctx context.Context, name string) (Info, error) {
	bc := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(name)
	props, err := bc.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Info{}, fmt.Errorf("blob properties %s: %w", name, err)
	}
	var info Info
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.ContentType != nil {
		info.ContentType = *props.ContentType
	}
	return info, nil
}

// Download opens count bytes of name starting at offset.  Cancelling ctx
// aborts the transfer.  The caller must close the reader.
func (s *AzureStore) Download(ctx context.Context, name string, offset, count int64) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, &azblob.DownloadStreamOptions{
		Range: azblob.HTTPRange{Offset: offset, Count: count},
	})
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("blob download %s: %w", name, err)
	}
	if resp.Body == nil {
		return nil, fmt.Errorf("blob download %s: empty body", name)
	}
	return resp.Body, nil
}

// Upload stores data under name with the given content type, replacing any
// existing blob.
func (s *AzureStore) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := s.client.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blobsdk.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("blob upload %s: %w", name, err)
	}
	return nil
}

// Delete removes name.  Deleting a missing blob is not an error.
func (s *AzureStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("blob delete %s: %w", name, err)
	}
	return nil
}
