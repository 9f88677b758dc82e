package datastore

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// defaultS3Endpoint is the AWS S3 endpoint used for dataset transfers.
const defaultS3Endpoint = "s3.amazonaws.com"

// parseS3URI splits an s3://bucket/prefix URI into bucket and prefix. The
// returned prefix carries a trailing slash when non-empty so object keys
// join cleanly.
func parseS3URI(uri string) (bucket, prefix string, err error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	if trimmed == uri || trimmed == "" {
		return "", "", fmt.Errorf("datastore: %q is not a valid s3 URI", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = strings.TrimPrefix(parts[1], "/")
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return bucket, prefix, nil
}

func s3Client(creds *Credentials) (*minio.Client, error) {
	client, err := minio.New(defaultS3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		Secure: true,
	})
	if err != nil {
		return nil, fmt.Errorf("datastore: create s3 client failed: %w", err)
	}
	return client, nil
}

// DownloadFiles copies every object under the dataset location into
// destDir, recreating the key hierarchy as directories.
func DownloadFiles(ctx context.Context, creds *Credentials, location S3Location, destDir string) error {
	bucket, prefix, err := parseS3URI(location.URI)
	if err != nil {
		return err
	}
	client, err := s3Client(creds)
	if err != nil {
		return err
	}

	count := 0
	for object := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return fmt.Errorf("datastore: list objects in %s failed: %w", location.URI, object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		relative := strings.TrimPrefix(object.Key, prefix)
		target := filepath.Join(destDir, filepath.FromSlash(relative))
		if err = client.FGetObject(ctx, bucket, object.Key, target, minio.GetObjectOptions{}); err != nil {
			return fmt.Errorf("datastore: download %s failed: %w", object.Key, err)
		}
		log.Debugf("downloaded %s -> %s", object.Key, target)
		count++
	}
	log.Infof("downloaded %d files from %s", count, location.URI)
	return nil
}

// UploadFiles copies every file under sourceDir into the dataset location,
// preserving the relative directory structure in object keys.
func UploadFiles(ctx context.Context, creds *Credentials, location S3Location, sourceDir string) error {
	bucket, prefix, err := parseS3URI(location.URI)
	if err != nil {
		return err
	}
	client, err := s3Client(creds)
	if err != nil {
		return err
	}

	count := 0
	err = filepath.WalkDir(sourceDir, func(file string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		relative, relErr := filepath.Rel(sourceDir, file)
		if relErr != nil {
			return relErr
		}
		key := path.Join(prefix, filepath.ToSlash(relative))
		if _, putErr := client.FPutObject(ctx, bucket, key, file, minio.PutObjectOptions{}); putErr != nil {
			return fmt.Errorf("datastore: upload %s failed: %w", relative, putErr)
		}
		log.Debugf("uploaded %s -> %s", relative, key)
		count++
		return nil
	})
	if err != nil {
		return err
	}
	log.Infof("uploaded %d files to %s", count, location.URI)
	return nil
}
