package files

import (
	"context"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/cockroachdb/errors"
)

// BlobDeleter removes a blob from the object store given its public URL.
type BlobDeleter interface {
	DeleteBlob(ctx context.Context, blobURL string) error
}

// NopDeleter is used when no object store is configured.
type NopDeleter struct{}

// DeleteBlob does nothing.
func (NopDeleter) DeleteBlob(context.Context, string) error { return nil }

// S3Config addresses the bucket holding file blobs.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint (S3-compatible stores, local
	// emulators). Setting it switches to path-style addressing.
	Endpoint string
}

// S3Deleter deletes blobs from an S3 bucket.
type S3Deleter struct {
	client s3iface.S3API
	bucket string
}

// NewS3Deleter creates a session for cfg.Region and returns a deleter bound
// to cfg.Bucket.
func NewS3Deleter(cfg S3Config) (*S3Deleter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("files: S3 bucket name is required")
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.Wrap(err, "files: create AWS session")
	}

	return NewS3DeleterWithClient(s3.New(sess), cfg.Bucket), nil
}

// NewS3DeleterWithClient binds an existing client to bucket.
func NewS3DeleterWithClient(client s3iface.S3API, bucket string) *S3Deleter {
	return &S3Deleter{client: client, bucket: bucket}
}

// DeleteBlob removes the object addressed by blobURL. Both virtual-hosted
// (https://bucket.s3.amazonaws.com/key) and path-style
// (https://host/bucket/key) URLs are accepted.
func (d *S3Deleter) DeleteBlob(ctx context.Context, blobURL string) error {
	key, err := d.objectKey(blobURL)
	if err != nil {
		return err
	}

	_, err = d.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "files: delete s3://%s/%s", d.bucket, key)
	}
	return nil
}

func (d *S3Deleter) objectKey(blobURL string) (string, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", errors.Wrapf(err, "files: parse blob url %q", blobURL)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if !strings.HasPrefix(u.Host, d.bucket+".") {
		key = strings.TrimPrefix(key, d.bucket+"/")
	}
	if key == "" {
		return "", errors.Newf("files: blob url %q has no object key", blobURL)
	}
	return key, nil
}
