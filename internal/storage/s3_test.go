package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	pages  [][]types.Object
	copies []*s3.CopyObjectInput
	puts   []*s3.PutObjectInput
	head   error
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	idx := 0
	if in.ContinuationToken != nil {
		idx = int(aws.ToString(in.ContinuationToken)[0] - '0')
	}
	out := &s3.ListObjectsV2Output{Contents: f.pages[idx]}
	if idx+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(string(rune('0' + idx + 1)))
	}
	return out, nil
}

func (f *fakeS3) HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.head != nil {
		return nil, f.head
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(3), ETag: aws.String(`"abc"`), Metadata: map[string]string{"touched": "t"}}, nil
}

func (f *fakeS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("org/repo"))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.copies = append(f.copies, in)
	return &s3.CopyObjectOutput{}, nil
}

func TestS3Bucket_ListPaginates(t *testing.T) {
	fake := &fakeS3{pages: [][]types.Object{
		{{Key: aws.String("d/b"), Size: aws.Int64(2), ETag: aws.String(`"e2"`)}},
		{{Key: aws.String("d/a"), Size: aws.Int64(1), ETag: aws.String(`"e1"`)}},
	}}
	b := NewS3Bucket(fake, "docs")

	infos, err := b.List(context.Background(), "d/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "d/a", infos[0].Key)
	require.Equal(t, "e1", infos[0].ETag)
	require.Equal(t, int64(2), infos[1].Size)
}

func TestS3Bucket_TouchReplacesMetadataInPlace(t *testing.T) {
	fake := &fakeS3{}
	b := NewS3Bucket(fake, "docs")

	require.NoError(t, b.Touch(context.Background(), "drafts/feature login/.github_source_repository", map[string]string{"touched": "2026"}))
	require.Len(t, fake.copies, 1)
	in := fake.copies[0]
	require.Equal(t, types.MetadataDirectiveReplace, in.MetadataDirective)
	require.Equal(t, "docs/drafts/feature%20login/.github_source_repository", aws.ToString(in.CopySource))
	require.Equal(t, "drafts/feature login/.github_source_repository", aws.ToString(in.Key))
	require.Equal(t, "2026", in.Metadata["touched"])
}

func TestS3Bucket_PutSetsContentType(t *testing.T) {
	fake := &fakeS3{}
	b := NewS3Bucket(fake, "docs")
	require.NoError(t, b.Put(context.Background(), "d/index.html", strings.NewReader("<p>"), 3, nil))
	require.Len(t, fake.puts, 1)
	require.True(t, strings.HasPrefix(aws.ToString(fake.puts[0].ContentType), "text/html"))
	require.Equal(t, int64(3), aws.ToInt64(fake.puts[0].ContentLength))
}

func TestS3Bucket_HeadNotFound(t *testing.T) {
	fake := &fakeS3{head: &smithy.GenericAPIError{Code: "NotFound", Message: "missing"}}
	b := NewS3Bucket(fake, "docs")
	_, err := b.Head(context.Background(), "d/x")
	require.True(t, IsNotFound(err))

	fake.head = errors.New("boom")
	_, err = b.Head(context.Background(), "d/x")
	require.Error(t, err)
	require.False(t, IsNotFound(err))

	fake.head = nil
	info, err := b.Head(context.Background(), "d/x")
	require.NoError(t, err)
	require.Equal(t, "abc", info.ETag)
	require.Equal(t, "t", info.Metadata["touched"])
}
