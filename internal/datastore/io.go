package datastore

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Download fetches the dataset identified by handle, obtains read
// credentials, and downloads every dataset file into destDir.
func (c *Client) Download(ctx context.Context, handle, destDir string) error {
	dataset, err := c.FetchDataset(ctx, handle)
	if err != nil {
		return err
	}
	if dataset == nil {
		return fmt.Errorf("datastore: no dataset found for handle %s", handle)
	}
	log.WithField("handle", handle).Infof("found dataset %q", dataset.Name)

	creds, err := c.ReadCredentials(ctx, dataset.S3)
	if err != nil {
		return err
	}
	return DownloadFiles(ctx, creds, dataset.S3, destDir)
}

// Upload fetches the dataset identified by handle, obtains write
// credentials, and uploads every file under sourceDir to the dataset
// location.
func (c *Client) Upload(ctx context.Context, handle, sourceDir string) error {
	dataset, err := c.FetchDataset(ctx, handle)
	if err != nil {
		return err
	}
	if dataset == nil {
		return fmt.Errorf("datastore: no dataset found for handle %s", handle)
	}
	log.WithField("handle", handle).Infof("found dataset %q", dataset.Name)

	creds, err := c.WriteCredentials(ctx, dataset.S3)
	if err != nil {
		return err
	}
	return UploadFiles(ctx, creds, dataset.S3, sourceDir)
}
