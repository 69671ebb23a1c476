// Package publisher 把一轮中发生变化的导出文件发布出去。
package publisher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Publisher 发布一组相对输出目录的文件路径。失败只返回错误，不回滚本地文件
type Publisher interface {
	Publish(ctx context.Context, paths []string) error
}

const (
	KindGit = "git"
	KindGCS = "gcs"
	KindNop = "none"
)

var ErrUnknownKind = errors.New("unknown publisher kind")

// Config 发布相关配置
type Config struct {
	Kind      string
	OutputDir string

	GitDir         string
	GitRemote      string
	GitPush        bool
	GitAuthorName  string
	GitAuthorEmail string
	GitUsername    string
	GitToken       string

	GCSBucket string
	GCSPrefix string
}

// New 按 Kind 创建发布器
func New(ctx context.Context, log *zap.Logger, cfg Config) (Publisher, error) {
	switch cfg.Kind {
	case KindGit:
		return NewGitPublisher(log, cfg)
	case KindGCS:
		client, err := NewGCSClient(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, err
		}
		return NewGCSPublisher(log, client, cfg.OutputDir, cfg.GCSPrefix), nil
	case KindNop, "":
		return NewNopPublisher(log), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
}
