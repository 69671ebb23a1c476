package publisher

import (
	"context"

	"go.uber.org/zap"
)

// NopPublisher 只记录日志，本地运行或测试时使用
type NopPublisher struct {
	Log *zap.Logger
}

func NewNopPublisher(log *zap.Logger) *NopPublisher {
	return &NopPublisher{Log: log}
}

func (p *NopPublisher) Publish(ctx context.Context, paths []string) error {
	p.Log.Info("Publishing disabled, skipping", zap.Strings("paths", paths))
	return nil
}
