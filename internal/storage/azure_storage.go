package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobSource downloads images from one storage account.
type AzureBlobSource struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureBlobSource authenticates with a shared key.
func NewAzureBlobSource(accountName, accountKey string, maxBytes int64) (*AzureBlobSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &AzureBlobSource{client: client, maxBytes: maxBytes}, nil
}

// ParseBlobURL splits a blob URL into container and blob name. Both
// /container/path/to/blob and /container?blob=name are accepted.
func ParseBlobURL(blobURL string) (container, blob string, err error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	path := strings.TrimPrefix(u.Path, "/")
	container, blob, _ = strings.Cut(path, "/")
	if blob == "" {
		blob = u.Query().Get("blob")
	}
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("blob URL %q must name a container and a blob", blobURL)
	}
	return container, blob, nil
}

// Fetch downloads the blob addressed by blobURL.
func (s *AzureBlobSource) Fetch(ctx context.Context, blobURL string) (*Object, error) {
	container, blob, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body, s.maxBytes)
	if err != nil {
		return nil, err
	}
	obj := &Object{Data: data, Location: blobURL}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}
	return obj, nil
}
