package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/googleapis/google-cloud-go-testing/storage/stiface"
	"go.uber.org/zap"
)

var (
	uploadTimeout = 5 * time.Minute

	ErrCreateClient = errors.New("failed to create GCS client")
	ErrUploadObject = errors.New("failed to upload GCS object")
	ErrCloseObject  = errors.New("failed to close GCS object")
	ErrReadFile     = errors.New("failed to read file")

	// 测试中替换
	storageNewClient = storage.NewClient
)

// Uploader 对象存储上传
type Uploader interface {
	Upload(ctx context.Context, objPath string, contents []byte) error
}

// StorageClient 单个 bucket 的 GCS 客户端
type StorageClient struct {
	bucket       string
	bucketHandle stiface.BucketHandle
}

// NewGCSClient 使用默认应用凭据创建客户端
func NewGCSClient(ctx context.Context, bucket string) (*StorageClient, error) {
	client, err := storageNewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}
	adaptClient := stiface.AdaptClient(client)
	return newStorageClient(bucket, adaptClient.Bucket(bucket)), nil
}

func newStorageClient(bucket string, bucketHandle stiface.BucketHandle) *StorageClient {
	return &StorageClient{
		bucket:       bucket,
		bucketHandle: bucketHandle,
	}
}

// Upload 覆盖写入对象。storage 包对临时错误会自行重试，直到 ctx 超时
func (s *StorageClient) Upload(ctx context.Context, objPath string, contents []byte) error {
	storageCtx, storageCancel := context.WithTimeout(ctx, uploadTimeout)
	defer storageCancel()
	writer := s.bucketHandle.Object(objPath).NewWriter(storageCtx)
	if _, err := writer.Write(contents); err != nil {
		writer.Close()
		return fmt.Errorf("%w: '%v:%v': %v", ErrUploadObject, s.bucket, objPath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: '%v:%v': %v", ErrCloseObject, s.bucket, objPath, err)
	}
	return nil
}

// GCSPublisher 把变化的文件上传到 gs://<bucket>/<Prefix>/<path>
type GCSPublisher struct {
	Log      *zap.Logger
	Uploader Uploader
	Dir      string
	Prefix   string
}

func NewGCSPublisher(log *zap.Logger, uploader Uploader, dir, prefix string) *GCSPublisher {
	return &GCSPublisher{
		Log:      log,
		Uploader: uploader,
		Dir:      dir,
		Prefix:   prefix,
	}
}

func (p *GCSPublisher) Publish(ctx context.Context, paths []string) error {
	for _, rel := range paths {
		contents, err := os.ReadFile(filepath.Join(p.Dir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadFile, err)
		}
		objPath := path.Join(p.Prefix, rel)
		if err := p.Uploader.Upload(ctx, objPath, contents); err != nil {
			return err
		}
		p.Log.Info("Uploaded file",
			zap.String("object", objPath),
			zap.Int("bytes", len(contents)),
		)
	}
	return nil
}
