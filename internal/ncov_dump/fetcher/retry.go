package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrRetriesExhausted = errors.New("retries exhausted")

// SleepFunc 可注入的等待函数，测试中替换掉真实的计时器
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep 基于 timer 的等待，ctx 取消时提前返回
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy 固定间隔重试。MaxAttempts <= 0 表示不设上限
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

// DefaultRetryPolicy 每秒重试一次，无限次
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Interval: time.Second,
		Sleep:    ContextSleep,
	}
}

// Unbounded 是否无限重试
func (p RetryPolicy) Unbounded() bool {
	return p.MaxAttempts <= 0
}

// Do 反复调用 fn 直到成功。attempt 从 1 开始
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}
	var lastErr error
	for attempt := 1; p.Unbounded() || attempt <= p.MaxAttempts; attempt++ {
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if !p.Unbounded() && attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, p.MaxAttempts, lastErr)
}
