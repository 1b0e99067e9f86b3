// Package blob talks to the external prescription image store. Upload
// failures are the caller's to tolerate; this package only reports them.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Uploader stores a file stream and returns its external identifiers.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (fileID, url string, err error)
}

type Config struct {
	Bucket    string
	Region    string
	URLPrefix string
}

// S3Uploader stores prescription images in an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	cfg    Config
}

func NewS3Uploader(ctx context.Context, cfg Config) (*S3Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg),
		cfg:    cfg,
	}, nil
}

// Upload writes the stream under a date-partitioned key and returns the key
// plus its public URL.
func (u *S3Uploader) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, string, error) {
	key := fmt.Sprintf("prescriptions/%s/%s%s",
		time.Now().Format("2006/01/02"),
		uuid.New(),
		path.Ext(filename),
	)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	url := strings.TrimRight(u.cfg.URLPrefix, "/") + "/" + key
	return key, url, nil
}
