package archive

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"

	"PdmSaas/internal/config"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Put(t *testing.T) {
	client := &fakeS3{}
	a := newS3Archiver(client, config.ArchiveOptions{Bucket: "pdm-uploads", Region: "us-east-1"})

	url, err := a.Put(context.Background(), "pdm/ejecucion/7/2025/abc.csv", []byte("a,b\n"), "")
	require.NoError(t, err)
	require.Equal(t, "https://pdm-uploads.s3.us-east-1.amazonaws.com/pdm/ejecucion/7/2025/abc.csv", url)
	require.Equal(t, "pdm-uploads", aws.ToString(client.input.Bucket))
	require.Equal(t, defaultContentType, aws.ToString(client.input.ContentType))
	require.Equal(t, []byte("a,b\n"), client.body)
}

func TestS3Archiver_BaseURLOverride(t *testing.T) {
	a := newS3Archiver(&fakeS3{}, config.ArchiveOptions{Bucket: "b", Region: "r", BaseURL: "http://minio:9000/b/"})
	url, err := a.Put(context.Background(), "k.xlsx", nil, "text/csv")
	require.NoError(t, err)
	require.Equal(t, "http://minio:9000/b/k.xlsx", url)
}

func TestS3Archiver_PutError(t *testing.T) {
	a := newS3Archiver(&fakeS3{err: errors.New("access denied")}, config.ArchiveOptions{Bucket: "b", Region: "r"})
	_, err := a.Put(context.Background(), "k", []byte("x"), "")
	require.ErrorContains(t, err, "access denied")
	require.ErrorContains(t, err, "bucket b")
}

func TestKey(t *testing.T) {
	year := 2025
	require.Equal(t, "pdm/ejecucion/7/2025/abc.xlsx", Key("pdm/ejecucion/", 7, &year, "abc", "Ejecucion.XLSX"))
	require.Equal(t, "pdm/7/all/abc.bin", Key("pdm", 7, nil, "abc", "sin_extension"))
}

func TestDetectContentType(t *testing.T) {
	require.Equal(t, defaultContentType, DetectContentType(nil))
	require.Equal(t, "text/plain; charset=utf-8", DetectContentType([]byte("PRODUCTO,PAGOS\n")))
}
