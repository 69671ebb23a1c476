// Package fetcher 从上游接口拉取各集合的当前数据。
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ncov-dump/internal/middleware/metrics"
	"ncov-dump/internal/ncov_dump/model"
)

const DefaultBaseURL = "https://lab.isaaclin.cn/nCoV/api/"

var (
	ErrStatus = errors.New("unexpected HTTP status")
	ErrBody   = errors.New("failed to decode response body")
)

type Fetcher struct {
	Log        *zap.Logger
	HTTPClient *http.Client
	BaseURL    string
	Retry      RetryPolicy
	Metrics    *metrics.Metrics
}

// NewFetcher 创建拉取器，重试策略默认为每秒一次、不设上限
func NewFetcher(log *zap.Logger, httpClient *http.Client, baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		Log:        log,
		HTTPClient: httpClient,
		BaseURL:    baseURL,
		Retry:      DefaultRetryPolicy(),
	}
}

// URL 集合对应的上游地址
func (f *Fetcher) URL(c model.Collection) string {
	return strings.TrimRight(f.BaseURL, "/") + "/" + strings.TrimLeft(c.Endpoint, "/")
}

// Fetch 拉取集合当前数据。只有 200 视为成功，其余情况按重试策略等待后重试
func (f *Fetcher) Fetch(ctx context.Context, c model.Collection) (*model.Payload, error) {
	var payload *model.Payload
	err := f.Retry.Do(ctx, func(attempt int) error {
		p, err := f.fetchOnce(ctx, c)
		f.Metrics.ObserveFetch(c.Name, err)
		if err != nil {
			f.Log.Warn("Fetch failed, will retry",
				zap.String("collection", c.Name),
				zap.Int("attempt", attempt),
				zap.Duration("delay", f.Retry.Interval),
				zap.Error(err),
			)
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, c model.Collection) (*model.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(c), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			f.Log.Warn("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		// 读掉剩余内容以便连接复用
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	p, err := model.DecodePayload(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBody, err)
	}
	return p, nil
}
