package archive

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penny/internal/providers"
)

type fakeS3 struct {
	err  error
	in   *s3.PutObjectInput
	body []byte
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archive(t *testing.T) {
	t.Run("puts encrypted object", func(t *testing.T) {
		fake := &fakeS3{}

		err := NewS3Archive(fake, "penny-ids").Archive(context.Background(), "uploads/s1/a1/document", []byte("img"), "image/png")

		require.NoError(t, err)
		assert.Equal(t, "penny-ids", aws.ToString(fake.in.Bucket))
		assert.Equal(t, "uploads/s1/a1/document", aws.ToString(fake.in.Key))
		assert.Equal(t, "image/png", aws.ToString(fake.in.ContentType))
		assert.Equal(t, types.ServerSideEncryptionAes256, fake.in.ServerSideEncryption)
		assert.Equal(t, []byte("img"), fake.body)
	})

	t.Run("missing bucket is not found", func(t *testing.T) {
		fake := &fakeS3{err: &smithy.GenericAPIError{Code: "NoSuchBucket"}}

		err := NewS3Archive(fake, "missing").Archive(context.Background(), "k", []byte("x"), "image/png")

		assert.Equal(t, providers.ErrorNotFound, providers.GetCategory(err))
	})
}
