package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"atrium/pkg/platform/sentinel"
)

// AzureStore backs Store with Azure Blob Storage. Locally it points at
// Azurite through the well-known dev connection string.
type AzureStore struct {
	client *azblob.Client
}

func NewAzureStore(connectionString string) (*AzureStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("blob client: %w", err)
	}
	return &AzureStore{client: client}, nil
}

func (s *AzureStore) EnsureContainer(ctx context.Context, container string) error {
	_, err := s.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", container, err)
	}
	return nil
}

func (s *AzureStore) Upload(ctx context.Context, container, name string, r io.Reader) error {
	_, err := s.client.UploadStream(ctx, container, name, r, nil)
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", container, name, err)
	}
	return nil
}

func (s *AzureStore) Download(ctx context.Context, container, name string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("download %s/%s: %w", container, name, err)
	}
	return resp.Body, nil
}

func (s *AzureStore) Delete(ctx context.Context, container, name string) error {
	_, err := s.client.DeleteBlob(ctx, container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", container, name, err)
	}
	return nil
}

func (s *AzureStore) List(ctx context.Context, container, prefix string) ([]Object, error) {
	var opts *azblob.ListBlobsFlatOptions
	if prefix != "" {
		opts = &azblob.ListBlobsFlatOptions{Prefix: &prefix}
	}

	var out []Object
	pager := s.client.NewListBlobsFlatPager(container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("list %s: %w", container, err)
		}
		for _, item := range page.Segment.BlobItems {
			obj := Object{Name: *item.Name}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					obj.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					obj.LastModified = *item.Properties.LastModified
				}
			}
			out = append(out, obj)
		}
	}
	return out, nil
}

func (s *AzureStore) Exists(ctx context.Context, container, name string) (bool, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(container).NewBlobClient(name)
	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s/%s: %w", container, name, err)
	}
	return true, nil
}
