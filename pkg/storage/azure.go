package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// AzureFileManager stores workflow documents as block blobs in one container.
// Shared-key auth from a standard connection string; http endpoints are
// allowed so local Azurite instances work.
type AzureFileManager struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
	containerInit bool
}

// NewAzureFileManager creates a store from a connection string and container.
func NewAzureFileManager(connectionString, containerName string, logger *zap.Logger) (*AzureFileManager, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if containerName == "" {
		return nil, fmt.Errorf("container name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	params := parseConnectionString(connectionString)
	accountName := params["AccountName"]
	accountKey := params["AccountKey"]
	serviceURL := params["BlobEndpoint"]
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("account name and key are required in the connection string")
	}
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	var clientOpts *azblob.ClientOptions
	if strings.HasPrefix(strings.ToLower(serviceURL), "http://") {
		clientOpts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				InsecureAllowCredentialWithHTTP: true,
			},
		}
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &AzureFileManager{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// Save uploads the document.
func (m *AzureFileManager) Save(ctx context.Context, name string, data []byte) error {
	if err := m.ensureContainer(ctx); err != nil {
		return err
	}

	blobClient := m.client.ServiceClient().
		NewContainerClient(m.containerName).
		NewBlockBlobClient(blobName(name))

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr("application/json"),
		},
	})
	if err != nil {
		m.logger.Error("failed to upload workflow",
			zap.String("name", name),
			zap.Int("size_bytes", len(data)),
			zap.Error(err))
		return fmt.Errorf("blob upload failed: %w", err)
	}

	m.logger.Debug("workflow uploaded",
		zap.String("name", name),
		zap.Int("size_bytes", len(data)))
	return nil
}

// Load downloads the document.
func (m *AzureFileManager) Load(ctx context.Context, name string) ([]byte, error) {
	blobClient := m.client.ServiceClient().
		NewContainerClient(m.containerName).
		NewBlobClient(blobName(name))

	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
		}
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob data: %w", err)
	}
	return data, nil
}

// List returns the stored workflow names.
func (m *AzureFileManager) List(ctx context.Context) ([]string, error) {
	pager := m.client.NewListBlobsFlatPager(m.containerName, nil)

	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil || !strings.HasSuffix(*item.Name, fileExtension) {
				continue
			}
			names = append(names, strings.TrimSuffix(*item.Name, fileExtension))
		}
	}
	return names, nil
}

// Delete removes the document.
func (m *AzureFileManager) Delete(ctx context.Context, name string) error {
	blobClient := m.client.ServiceClient().
		NewContainerClient(m.containerName).
		NewBlobClient(blobName(name))

	_, err := blobClient.Delete(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (m *AzureFileManager) ensureContainer(ctx context.Context) error {
	if m.containerInit {
		return nil
	}
	_, err := m.client.CreateContainer(ctx, m.containerName, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(bloberror.ContainerAlreadyExists) {
			m.containerInit = true
			return nil
		}
		return fmt.Errorf("failed to ensure container: %w", err)
	}
	m.containerInit = true
	return nil
}

func blobName(name string) string {
	return name + fileExtension
}

func parseConnectionString(connectionString string) map[string]string {
	parts := strings.Split(connectionString, ";")
	params := make(map[string]string, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, "=")
		if idx <= 0 {
			continue
		}
		params[part[:idx]] = part[idx+1:]
	}
	return params
}
