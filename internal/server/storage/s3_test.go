package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	puts    []*s3.PutObjectInput
	deletes []string
	pages   []*s3.ListObjectsV2Output
	listed  int
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeObjects) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := f.pages[f.listed]
	f.listed++
	return p, nil
}

type fakePresign struct {
	in      *s3.GetObjectInput
	expires time.Duration
}

func (f *fakePresign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	f.in, f.expires = in, o.Expires
	return &v4.PresignedHTTPRequest{URL: "https://s3.example/" + aws.ToString(in.Key) + "?sig=1"}, nil
}

func TestS3Store_PutUsesSSE(t *testing.T) {
	objs := &fakeObjects{}
	s := &S3Store{bucket: "docs", client: objs}

	err := s.Put(context.Background(), "u1/a.pdf", strings.NewReader("data"), 4, "application/pdf", map[string]string{"originalname": "a.pdf"})
	require.NoError(t, err)
	require.Len(t, objs.puts, 1)

	in := objs.puts[0]
	assert.Equal(t, "docs", aws.ToString(in.Bucket))
	assert.Equal(t, "u1/a.pdf", aws.ToString(in.Key))
	assert.Equal(t, int64(4), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "application/pdf", aws.ToString(in.ContentType))
	assert.Equal(t, types.ServerSideEncryptionAes256, in.ServerSideEncryption)
	assert.Equal(t, "a.pdf", in.Metadata["originalname"])
}

func TestS3Store_Errors(t *testing.T) {
	s := &S3Store{bucket: "docs", client: &fakeObjects{err: errors.New("denied")}}

	err := s.Put(context.Background(), "k", strings.NewReader(""), 0, "image/png", nil)
	require.ErrorContains(t, err, "denied")
	require.ErrorContains(t, s.Delete(context.Background(), "k"), "delete object k")
	_, err = s.List(context.Background(), "u1/")
	require.ErrorContains(t, err, "list objects u1/")
}

func TestS3Store_PresignGet(t *testing.T) {
	p := &fakePresign{}
	s := &S3Store{bucket: "docs", presign: p}

	url, err := s.PresignGet(context.Background(), "u1/a.pdf", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/u1/a.pdf?sig=1", url)
	assert.Equal(t, time.Hour, p.expires)
	assert.Equal(t, "docs", aws.ToString(p.in.Bucket))
}

func TestS3Store_ListFollowsPages(t *testing.T) {
	now := time.Now()
	objs := &fakeObjects{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{{Key: aws.String("u1/a.pdf"), Size: aws.Int64(1), LastModified: &now}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
		},
		{
			Contents: []types.Object{{Key: aws.String("u1/b.png"), Size: aws.Int64(2)}},
		},
	}}
	s := &S3Store{bucket: "docs", client: objs}

	got, err := s.List(context.Background(), "u1/")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1/b.png", got[1].Key)
	assert.Equal(t, int64(2), got[1].Size)
	assert.Equal(t, 2, objs.listed)
}

func TestS3Store_Delete(t *testing.T) {
	objs := &fakeObjects{}
	s := &S3Store{bucket: "docs", client: objs}

	require.NoError(t, s.Delete(context.Background(), "u1/a.pdf"))
	assert.Equal(t, []string{"u1/a.pdf"}, objs.deletes)
}

func TestNewS3Store_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "ap-south-1", lo.Region)
		assert.NotNil(t, lo.Credentials, "static credentials expected")
		return aws.Config{Region: lo.Region}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.New(s3.Options{Region: cfg.Region})
	}

	s, err := NewS3Store(context.Background(), Options{
		Bucket: "docs", Region: "ap-south-1", AccessKey: "minioadmin", SecretKey: "minioadmin",
		BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Store_LoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), Options{Region: "us-east-1"})
	require.ErrorContains(t, err, "no config")
}

func TestNewObjectKey(t *testing.T) {
	re := regexp.MustCompile(`^u1/[0-9a-f-]{36}\.(\w+)$`)

	tests := []struct {
		name, file, ct, ext string
	}{
		{"from name", "Scan.PDF", "application/pdf", "pdf"},
		{"from content type", "photo", "image/webp", "webp"},
		{"jpeg alias", "blob", "image/jpg", "jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewObjectKey("u1", tt.file, tt.ct)
			m := re.FindStringSubmatch(key)
			require.NotNil(t, m, key)
			assert.Equal(t, tt.ext, m[1])
		})
	}

	assert.NotEqual(t, NewObjectKey("u1", "a.pdf", ""), NewObjectKey("u1", "a.pdf", ""))
	assert.True(t, strings.HasPrefix(NewObjectKey("u1", "a.pdf", ""), UserPrefix("u1")))
}
