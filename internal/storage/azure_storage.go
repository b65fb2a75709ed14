package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// NewAzureClient builds a shared-key blob client for accountName.
func NewAzureClient(accountName, accountKey string) (*azblob.Client, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}
	return client, nil
}

// AzureImageFetcher reads source images from Azure Blob Storage
type AzureImageFetcher struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureImageFetcher creates a fetcher backed by client
func NewAzureImageFetcher(client *azblob.Client, maxBytes int64) *AzureImageFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultHTTPOptions().MaxBytes
	}
	return &AzureImageFetcher{client: client, maxBytes: maxBytes}
}

// ParseBlobURL extracts the container and blob name. Both
// https://acct.blob.core.windows.net/container?blob=name and
// https://acct.blob.core.windows.net/container/name are accepted.
func ParseBlobURL(blobURL string) (containerName, blobName string, err error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	trimmed := strings.Trim(parsedURL.Path, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("invalid blob URL: missing container")
	}

	if name := parsedURL.Query().Get("blob"); name != "" {
		return trimmed, name, nil
	}

	containerName, blobName, found := strings.Cut(trimmed, "/")
	if !found || blobName == "" {
		return "", "", fmt.Errorf("invalid blob URL: missing blob name")
	}
	return containerName, blobName, nil
}

// Fetch downloads the blob addressed by blobURL
func (s *AzureImageFetcher) Fetch(ctx context.Context, blobURL string) (*FetchedImage, error) {
	containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, newFetchError(404)
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}
	body := resp.Body
	defer body.Close()

	contentType := ""
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w (content type %q)", ErrNotImage, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, s.maxBytes)
	}

	return &FetchedImage{Data: data, ContentType: contentType, Name: path.Base(blobName)}, nil
}

// AzureArtifactStore keeps enhanced images in a blob container
type AzureArtifactStore struct {
	client    *azblob.Client
	container string
}

// NewAzureArtifactStore creates an artifact store writing to containerName
func NewAzureArtifactStore(client *azblob.Client, containerName string) *AzureArtifactStore {
	return &AzureArtifactStore{client: client, container: containerName}
}

func (s *AzureArtifactStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ValidateArtifactName(name); err != nil {
		return "", err
	}
	_, err := s.client.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.client.URL(), "/"), s.container, name), nil
}

func (s *AzureArtifactStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	if err := ValidateArtifactName(name); err != nil {
		return nil, 0, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, 0, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
		}
		return nil, 0, fmt.Errorf("download failed: %w", err)
	}

	size := int64(-1)
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return resp.Body, size, nil
}
