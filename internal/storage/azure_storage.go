package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

// BlobLoader loads images stored as Azure blobs, addressed as
// az://<container>/<blob name>.
type BlobLoader struct {
	client *azblob.Client
}

// NewAzureStorage creates a blob loader for the storage account
func NewAzureStorage(accountName string, accountKey string) (*BlobLoader, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid Azure storage credentials", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to create Azure blob client", err)
	}

	return &BlobLoader{client: client}, nil
}

// ParseBlobLocation splits az://container/blob into its parts.
func ParseBlobLocation(location string) (container, blob string, err error) {
	parsedURL, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob location: %w", err)
	}
	container = parsedURL.Host
	blob = strings.TrimPrefix(parsedURL.Path, "/")
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("invalid blob location %q", location)
	}
	return container, blob, nil
}

func (s *BlobLoader) Load(ctx context.Context, location string) (image.Image, error) {
	container, blob, err := ParseBlobLocation(location)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid blob location", err)
	}

	downloadResponse, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("download of %s/%s failed", container, blob), err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	img, _, err := Decode(retryReader)
	return img, err
}
