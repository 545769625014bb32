package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// fakeS3 is an in-memory stand-in for the S3 client, keyed by the full
// bucket key. Unimplemented methods panic through the embedded interface.
type fakeS3 struct {
	s3iface.S3API

	objects  map[string][]byte
	pageSize int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, pageSize: 1000}
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New("NotFound", "not found", nil)
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(ctx aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, opts ...request.Option) error {
	prefix := aws.StringValue(in.Prefix)
	var keys []string
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for start := 0; start < len(keys) || start == 0; start += f.pageSize {
		end := start + f.pageSize
		if end > len(keys) {
			end = len(keys)
		}
		page := &s3.ListObjectsV2Output{}
		for _, key := range keys[start:end] {
			page.Contents = append(page.Contents, &s3.Object{
				Key:  aws.String(key),
				Size: aws.Int64(int64(len(f.objects[key]))),
			})
		}
		if !fn(page, end == len(keys)) {
			return nil
		}
		if end == len(keys) {
			return nil
		}
	}
	return nil
}

func newTestS3Store(client *fakeS3) *S3Store {
	return NewS3StoreWithClient(client, &S3Config{
		Bucket: "chronicle-archives",
		Region: "us-east-1",
		Prefix: "chronicle",
	})
}

func TestS3Store_PutGetRoundTrip(t *testing.T) {
	client := newFakeS3()
	store := newTestS3Store(client)
	ctx := context.Background()

	url, err := store.Put(ctx, "exports/proj-1/archive.zip", []byte("zip-bytes"), "application/zip")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "https://chronicle-archives.s3.us-east-1.amazonaws.com/chronicle/exports/proj-1/archive.zip" {
		t.Errorf("Expected virtual-hosted URL with prefixed key, got %q", url)
	}
	if _, ok := client.objects["chronicle/exports/proj-1/archive.zip"]; !ok {
		t.Error("Expected object stored under the configured prefix")
	}

	data, err := store.Get(ctx, "exports/proj-1/archive.zip")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(data, []byte("zip-bytes")) {
		t.Errorf("Expected round-tripped bytes, got %q", data)
	}
}

func TestS3Store_PutUsesPublicBaseURL(t *testing.T) {
	store := NewS3StoreWithClient(newFakeS3(), &S3Config{
		Bucket:        "chronicle-archives",
		Region:        "us-east-1",
		Prefix:        "chronicle",
		PublicBaseURL: "https://archives.example.com/",
	})

	url, err := store.Put(context.Background(), "exports/a.zip", []byte("x"), "application/zip")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "https://archives.example.com/chronicle/exports/a.zip" {
		t.Errorf("Expected public base URL joined with full key, got %q", url)
	}
}

func TestS3Store_GetMissingKey(t *testing.T) {
	store := newTestS3Store(newFakeS3())

	_, err := store.Get(context.Background(), "no/such/key")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	var serr *StoreError
	if !errors.As(err, &serr) || serr.Backend != "s3" || serr.Operation != "get" {
		t.Errorf("Expected s3 get StoreError, got %v", err)
	}
}

func TestS3Store_Delete(t *testing.T) {
	client := newFakeS3()
	store := newTestS3Store(client)
	ctx := context.Background()

	if _, err := store.Put(ctx, "exports/a.zip", []byte("x"), "application/zip"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "exports/a.zip"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(client.objects) != 0 {
		t.Errorf("Expected bucket emptied, got %d objects", len(client.objects))
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "exports/a.zip"); err != nil {
		t.Errorf("Expected missing-key delete to succeed, got %v", err)
	}
}

func TestS3Store_Size(t *testing.T) {
	store := newTestS3Store(newFakeS3())
	ctx := context.Background()

	if _, err := store.Put(ctx, "exports/a.zip", []byte("12345"), "application/zip"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	size, err := store.Size(ctx, "exports/a.zip")
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 5 {
		t.Errorf("Expected size 5, got %d", size)
	}

	if _, err := store.Size(ctx, "exports/missing.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing key, got %v", err)
	}
}

func TestS3Store_TotalSizePaginates(t *testing.T) {
	client := newFakeS3()
	client.pageSize = 2
	store := newTestS3Store(client)
	ctx := context.Background()

	puts := map[string][]byte{
		"exports/proj-1/a.zip": []byte("12345"),
		"exports/proj-1/b.zip": []byte("123"),
		"exports/proj-1/c.zip": []byte("1234"),
		"audio/proj-1/s-1.mp3": []byte("1234567890"),
	}
	for key, data := range puts {
		if _, err := store.Put(ctx, key, data, "application/octet-stream"); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}

	total, err := store.TotalSize(ctx, "exports/proj-1/")
	if err != nil {
		t.Fatalf("TotalSize failed: %v", err)
	}
	if total != 12 {
		t.Errorf("Expected paginated total 12, got %d", total)
	}
}
