package spaces

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	put     []*s3.PutObjectInput
	deleted []string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.put = append(f.put, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func testConfig(cdn string) Config {
	return Config{Bucket: "catalog", Region: "fra1", Endpoint: "fra1.digitaloceanspaces.com", CDNURL: cdn}
}

func TestNewClientRequiresConfig(t *testing.T) {
	_, err := NewClient(Config{Bucket: "catalog"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestKeyFromURL(t *testing.T) {
	c := newClient(&fakeS3{}, testConfig("https://cdn.example.com/"))

	tests := []struct {
		url string
		key string
		ok  bool
	}{
		{"https://catalog.fra1.digitaloceanspaces.com/faculties/a/x.png", "faculties/a/x.png", true},
		{"https://cdn.example.com/faculties/a/x.png", "faculties/a/x.png", true},
		{"https://cdn.example.com/", "", false},
		{"https://elsewhere.example.com/x.png", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		key, ok := c.KeyFromURL(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.key, key, tt.url)
	}
}

func TestUploadThumbnailThenDeleteByURL(t *testing.T) {
	api := &fakeS3{}
	c := newClient(api, testConfig(""))
	ctx := context.Background()

	url, err := c.UploadThumbnail(ctx, "fac-1", "Logo.PNG", []byte("png"), "image/png")
	require.NoError(t, err)
	require.Len(t, api.put, 1)

	key := aws.StringValue(api.put[0].Key)
	assert.Regexp(t, `^faculties/fac-1/[0-9a-f-]{36}\.png$`, key)
	assert.Equal(t, "https://catalog.fra1.digitaloceanspaces.com/"+key, url)

	require.NoError(t, c.DeleteByURL(ctx, url))
	require.NoError(t, c.DeleteByURL(ctx, "https://elsewhere.example.com/x.png"))
	assert.Equal(t, []string{key}, api.deleted)
}
