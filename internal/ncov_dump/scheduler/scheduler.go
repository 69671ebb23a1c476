package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ncov-dump/internal/middleware/metrics"
	"ncov-dump/internal/ncov_dump/fetcher"
	"ncov-dump/internal/ncov_dump/model"
	"ncov-dump/internal/ncov_dump/processor"
	"ncov-dump/internal/ncov_dump/publisher"
	"ncov-dump/internal/ncov_dump/snapshot"
)

// DefaultInterval 两轮之间的固定间隔
const DefaultInterval = time.Hour

var ErrPublish = errors.New("publish failed")

// PayloadFetcher 拉取集合当前数据，*fetcher.Fetcher 实现
type PayloadFetcher interface {
	Fetch(ctx context.Context, c model.Collection) (*model.Payload, error)
}

type Worker struct {
	Log         *zap.Logger
	Collections []model.Collection
	Fetcher     PayloadFetcher
	Snapshots   *snapshot.Store
	Dumper      *processor.Dumper
	Publisher   publisher.Publisher
	Interval    time.Duration
	Sleep       fetcher.SleepFunc
	Metrics     *metrics.Metrics
	Status      *Status
	Now         func() time.Time
}

// PassResult 一轮的结果
type PassResult struct {
	Changed   []string // 发生变化的集合
	Skipped   []string // 因数据异常或拉取失败跳过的集合
	Paths     []string // 本轮写出并发布的文件
	Published bool
}

// Run 每轮结束后固定休眠 Interval，直到 ctx 取消
func (w *Worker) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	sleep := w.Sleep
	if sleep == nil {
		sleep = fetcher.ContextSleep
	}
	for {
		res, err := w.RunOnce(ctx)
		if err != nil {
			w.Log.Error("Pass failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.Log.Info("Pass finished, sleeping",
			zap.Strings("changed", res.Changed),
			zap.Strings("skipped", res.Skipped),
			zap.Duration("interval", interval),
		)
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// RunOnce 依次检查所有集合，变化的文件累积到本轮末尾统一发布一次
func (w *Worker) RunOnce(ctx context.Context) (PassResult, error) {
	var res PassResult
	var passErr error

	for _, c := range w.Collections {
		paths, changed, err := w.processCollection(ctx, c)
		w.Status.recordCollection(c.Name, w.now(), changed, err)
		if err != nil {
			if ctx.Err() != nil || !skippable(err) {
				passErr = fmt.Errorf("%s: %w", c.Name, err)
				break
			}
			w.Log.Error("Collection skipped",
				zap.String("collection", c.Name),
				zap.Error(err),
			)
			res.Skipped = append(res.Skipped, c.Name)
			continue
		}
		if changed {
			res.Changed = append(res.Changed, c.Name)
			res.Paths = append(res.Paths, paths...)
		}
		w.Log.Info("Collection checked",
			zap.String("collection", c.Name),
			zap.Bool("changed", changed),
		)
	}

	// 中途失败时已经写出的文件也要发布，否则下一轮快照相同不会再发布
	if len(res.Paths) > 0 {
		err := w.Publisher.Publish(ctx, res.Paths)
		w.Metrics.ObservePublish(err)
		if err != nil {
			passErr = errors.Join(passErr, fmt.Errorf("%w: %v", ErrPublish, err))
		} else {
			res.Published = true
		}
	}

	at := w.now()
	w.Metrics.ObservePass(passErr, at)
	w.Status.recordPass(at, passErr)
	return res, passErr
}

// skippable 只影响单个集合的错误：数据异常、有限重试用尽
func skippable(err error) bool {
	return errors.Is(err, processor.ErrMalformedRecord) || errors.Is(err, fetcher.ErrRetriesExhausted)
}

// processCollection 返回写出的相对路径。快照最后写入，导出失败时下一轮会重新导出
func (w *Worker) processCollection(ctx context.Context, c model.Collection) ([]string, bool, error) {
	last := w.Snapshots.Load(c)
	current, err := w.Fetcher.Fetch(ctx, c)
	if err != nil {
		return nil, false, err
	}
	if !processor.HasChanged(last, current) {
		return nil, false, nil
	}
	w.Metrics.ObserveChange(c.Name)
	w.Log.Info("Change detected", zap.String("collection", c.Name))

	tablePath, err := w.Dumper.DumpTable(ctx, c)
	if err != nil {
		return nil, false, err
	}
	seriesPath, err := w.Dumper.DumpTimeSeries(ctx, c)
	if err != nil {
		return nil, false, err
	}
	if err := w.Snapshots.Save(c, current); err != nil {
		return nil, false, err
	}
	return []string{c.SnapshotPath(), tablePath, seriesPath}, true, nil
}
