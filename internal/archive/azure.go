package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// AzureArchive stores raw mention batches as JSON blobs
type AzureArchive struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureArchive implements Archiver
var _ Archiver = (*AzureArchive)(nil)

// NewAzureArchive creates an archive client using managed identity
func NewAzureArchive(accountName, containerName string) (*AzureArchive, error) {
	if accountName == "" {
		return nil, fmt.Errorf("archive storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	a := &AzureArchive{
		client:        client,
		containerName: containerName,
	}

	if err := a.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return a, nil
}

func (a *AzureArchive) ensureContainer() error {
	_, err := a.client.CreateContainer(context.Background(), a.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", a.containerName)
	} else {
		logrus.Infof("Created container %s", a.containerName)
	}

	return nil
}

// ArchiveBatch uploads a raw mention batch as one JSON blob
func (a *AzureArchive) ArchiveBatch(ctx context.Context, name string, mentions []models.RawMention) error {
	data, err := json.Marshal(mentions)
	if err != nil {
		return fmt.Errorf("failed to marshal mention batch: %w", err)
	}

	_, err = a.client.UploadBuffer(ctx, a.containerName, name, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
	})
	if err != nil {
		return fmt.Errorf("failed to upload batch %s: %w", name, err)
	}

	logrus.Infof("Archived %d raw mentions to %s", len(mentions), name)
	return nil
}

// Retrieve downloads and decodes an archived batch
func (a *AzureArchive) Retrieve(ctx context.Context, name string) ([]models.RawMention, error) {
	response, err := a.client.DownloadStream(ctx, a.containerName, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download batch %s: %w", name, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch content: %w", err)
	}

	var mentions []models.RawMention
	if err := json.Unmarshal(data, &mentions); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", name, err)
	}

	return mentions, nil
}

// List returns archived batch names under the given prefix
func (a *AzureArchive) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	pager := a.client.NewListBlobsFlatPager(a.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list batches: %w", err)
		}

		for _, blob := range page.Segment.BlobItems {
			if blob.Name != nil {
				names = append(names, *blob.Name)
			}
		}
	}

	return names, nil
}

// Delete removes an archived batch
func (a *AzureArchive) Delete(ctx context.Context, name string) error {
	_, err := a.client.DeleteBlob(ctx, a.containerName, name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete batch %s: %w", name, err)
	}

	logrus.Infof("Deleted archived batch %s", name)
	return nil
}
