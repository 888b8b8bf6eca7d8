// Package archive optionally uploads a finished fusion deliverable (the
// combined PDF or RTF a task produces) to S3, for installations that want
// the output retained somewhere durable beyond the local workspace.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client uploads deliverables to a single S3 bucket.
type Client struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// New loads AWS config from the environment/instance profile and
// constructs a Client bound to bucket, prefixing every uploaded key with
// prefix.
func New(ctx context.Context, bucket, prefix string) (*Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)
	return &Client{
		uploader: manager.NewUploader(cli),
		bucket:   bucket,
		prefix:   prefix,
	}, nil
}

// UploadDeliverable uploads the file at localPath, keyed by
// <prefix>/<runID>/<basename>, and returns the resulting s3:// URL. It
// multipart-uploads via manager.Uploader so large combined PDFs don't
// need to fit in memory as a single PutObject body.
func (c *Client) UploadDeliverable(ctx context.Context, runID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("archive: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := path.Join(c.prefix, runID, path.Base(localPath))
	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("archive: upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}
