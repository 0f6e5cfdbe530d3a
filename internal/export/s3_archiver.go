package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/segmentio/ksuid"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads exports under <prefix>/<ksuid>-<name>. The KSUID keeps
// two exports from the same minute apart and sorts keys by upload time.
type S3Archiver struct {
	client s3PutAPI
	bucket string
	prefix string
}

// NewS3Archiver returns nil when bucket is empty so callers can pass it straight through.
func NewS3Archiver(client *s3.Client, bucket, prefix string) *S3Archiver {
	if client == nil || strings.TrimSpace(bucket) == "" {
		return nil
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (a *S3Archiver) Archive(ctx context.Context, name string, body []byte) error {
	if a == nil {
		return nil
	}
	key := ksuid.New().String() + "-" + name
	if a.prefix != "" {
		key = path.Join(a.prefix, key)
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("export: s3 put %s: %w", key, err)
	}
	return nil
}
