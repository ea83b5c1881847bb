// Package archive stores the original bytes of accepted uploads in S3 so a
// ledger replacement can always be traced back to the file that caused it.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"

	"PdmSaas/internal/config"
)

const defaultContentType = "application/octet-stream"

// Archiver persists an upload and returns the URL it can be fetched from.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archiver struct {
	client  putObjectAPI
	bucket  string
	baseURL string
}

// NewS3Archiver loads the default AWS credential chain for opts.Region.
func NewS3Archiver(ctx context.Context, opts config.ArchiveOptions) (*S3Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, errors.Wrap(err, "load AWS config")
	}
	return newS3Archiver(s3.NewFromConfig(cfg), opts), nil
}

func newS3Archiver(client putObjectAPI, opts config.ArchiveOptions) *S3Archiver {
	base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
	return &S3Archiver{client: client, bucket: opts.Bucket, baseURL: base + "/"}
}

func (a *S3Archiver) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload to s3 (bucket %s, key %s)", a.bucket, key)
	}
	return a.baseURL + key, nil
}

// Key builds <prefix><org>/<year|all>/<hash><ext>. Files with identical
// content for the same scope share a key.
func Key(prefix string, orgID int64, fiscalYear *int, fileHash, fileName string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}
	year := "all"
	if fiscalYear != nil {
		year = fmt.Sprintf("%d", *fiscalYear)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%s%d/%s/%s%s", prefix, orgID, year, fileHash, ext)
}

func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return defaultContentType
	}
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}
