package publisher //nolint:testpackage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/googleapis/google-cloud-go-testing/storage/stiface"
	"go.uber.org/zap/zaptest"
	"google.golang.org/api/option"
)

func TestNewGCSClient(t *testing.T) { //nolint:paralleltest
	saveStorageNewClient := storageNewClient
	defer func() {
		storageNewClient = saveStorageNewClient
	}()
	storageNewClient = testNewClient
	c := context.Background()
	// 没有 deadline 时强制失败
	if _, err := NewGCSClient(c, "some-bucket"); !errors.Is(err, ErrCreateClient) {
		t.Fatalf("NewGCSClient() = %v, want %v", err, ErrCreateClient)
	}
	ctx, cancel := context.WithTimeout(c, time.Second)
	defer cancel()
	if _, err := NewGCSClient(ctx, "some-bucket"); err != nil {
		t.Fatalf("NewGCSClient() = %v, want nil", err)
	}
}

func testNewClient(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("forced failure") //nolint:goerr113
	}
	return &storage.Client{}, nil
}

func TestUpload(t *testing.T) {
	t.Parallel()
	bucket := &fakeBucketHandle{objects: map[string][]byte{}}
	client := newStorageClient("some-bucket", bucket)

	if err := client.Upload(context.Background(), "ncov/json/DXYArea.json", []byte("{}")); err != nil {
		t.Fatalf("Upload() = %v, want nil", err)
	}
	if string(bucket.objects["ncov/json/DXYArea.json"]) != "{}" {
		t.Fatalf("object = %q, want {}", bucket.objects["ncov/json/DXYArea.json"])
	}
	if err := client.Upload(context.Background(), "x", []byte("should-fail-write")); !errors.Is(err, ErrUploadObject) {
		t.Fatalf("Upload() = %v, want %v", err, ErrUploadObject)
	}
	if err := client.Upload(context.Background(), "x", []byte("should-fail-close")); !errors.Is(err, ErrCloseObject) {
		t.Fatalf("Upload() = %v, want %v", err, ErrCloseObject)
	}
}

func TestGCSPublisher(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "csv"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "csv", "DXYNews.csv"), []byte("title\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bucket := &fakeBucketHandle{objects: map[string][]byte{}}
	p := NewGCSPublisher(zaptest.NewLogger(t), newStorageClient("some-bucket", bucket), dir, "ncov")

	if err := p.Publish(context.Background(), []string{"csv/DXYNews.csv"}); err != nil {
		t.Fatalf("Publish() = %v, want nil", err)
	}
	if string(bucket.objects["ncov/csv/DXYNews.csv"]) != "title\n" {
		t.Fatalf("objects = %v", bucket.objects)
	}
	if err := p.Publish(context.Background(), []string{"csv/missing.csv"}); !errors.Is(err, ErrReadFile) {
		t.Fatalf("Publish() = %v, want %v", err, ErrReadFile)
	}
}

type fakeBucketHandle struct {
	stiface.BucketHandle
	objects map[string][]byte
}

func (f *fakeBucketHandle) Object(name string) stiface.ObjectHandle { //nolint:ireturn
	return fakeObjectHandle{name: name, bucket: f}
}

type fakeObjectHandle struct {
	stiface.ObjectHandle
	name   string
	bucket *fakeBucketHandle
}

func (f fakeObjectHandle) NewWriter(ctx context.Context) stiface.Writer { //nolint:ireturn
	return &fakeWriter{name: f.name, bucket: f.bucket}
}

type fakeWriter struct {
	stiface.Writer
	name   string
	bucket *fakeBucketHandle
	data   []byte
}

func (f *fakeWriter) Write(p []byte) (int, error) {
	if string(p) == "should-fail-write" {
		return 0, io.ErrUnexpectedEOF
	}
	f.data = append(f.data, p...)
	return len(p), nil
}

func (f *fakeWriter) Close() error {
	if string(f.data) == "should-fail-close" {
		return io.EOF
	}
	f.bucket.objects[f.name] = f.data
	return nil
}
