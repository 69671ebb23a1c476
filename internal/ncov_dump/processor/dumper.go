// Package processor 变化检测以及 CSV、时间序列两种导出。
package processor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"ncov-dump/internal/ncov_dump/helper"
	"ncov-dump/internal/ncov_dump/model"
)

// Dumper 从存储导出集合到输出目录
type Dumper struct {
	Log      *zap.Logger
	Store    helper.DocumentStore
	Dir      string
	Location *time.Location
}

// NewDumper 创建导出器，loc 为 nil 时使用进程本地时区
func NewDumper(log *zap.Logger, store helper.DocumentStore, dir string, loc *time.Location) *Dumper {
	if loc == nil {
		loc = time.Local
	}
	return &Dumper{
		Log:      log,
		Store:    store,
		Dir:      dir,
		Location: loc,
	}
}

func (d *Dumper) abs(rel string) string {
	return filepath.Join(d.Dir, filepath.FromSlash(rel))
}

// Rows 读取集合并按集合规则展开成行
func (d *Dumper) Rows(ctx context.Context, c model.Collection) ([]model.Row, error) {
	cur, err := d.Store.Dump(ctx, c.Name)
	if err != nil {
		return nil, err
	}
	defer func(cur helper.Cursor, ctx context.Context) {
		if err := cur.Close(ctx); err != nil {
			d.Log.Warn("Failed to close cursor", zap.String("collection", c.Name), zap.Error(err))
		}
	}(cur, ctx)

	var rows []model.Row
	for cur.Next(ctx) {
		if c.IsArea() {
			var rec model.AreaRecord
			if err := cur.Decode(&rec); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
			}
			flat, err := FlattenArea(rec, d.Location)
			if err != nil {
				return nil, err
			}
			rows = append(rows, flat...)
			continue
		}

		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		rows = append(rows, FlattenDocument(doc, d.Location))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// DumpTable 覆盖写入 csv/<Name>.csv，返回相对路径
func (d *Dumper) DumpTable(ctx context.Context, c model.Collection) (string, error) {
	rows, err := d.Rows(ctx, c)
	if err != nil {
		return "", err
	}
	opts := TableOptions{IntegerNumbers: c.IsArea(), Location: d.Location}
	rel := c.TablePath()
	if err := helper.WriteFileAtomic(d.abs(rel), func(w io.Writer) error {
		return WriteTable(w, rows, opts)
	}); err != nil {
		return "", err
	}
	d.Log.Debug("Table dumped",
		zap.String("collection", c.Name),
		zap.Int("rows", len(rows)),
	)
	return rel, nil
}

// DumpTimeSeries 用存储的当前全量数据重写 json/<Name>-TimeSeries.json，返回相对路径
func (d *Dumper) DumpTimeSeries(ctx context.Context, c model.Collection) (string, error) {
	cur, err := d.Store.Dump(ctx, c.Name)
	if err != nil {
		return "", err
	}
	defer func(cur helper.Cursor, ctx context.Context) {
		if err := cur.Close(ctx); err != nil {
			d.Log.Warn("Failed to close cursor", zap.String("collection", c.Name), zap.Error(err))
		}
	}(cur, ctx)

	rel := c.TimeSeriesPath()
	var n int
	if err := helper.WriteFileAtomic(d.abs(rel), func(w io.Writer) error {
		var err error
		n, err = WriteTimeSeries(ctx, w, cur)
		return err
	}); err != nil {
		return "", err
	}
	d.Log.Debug("Time series dumped",
		zap.String("collection", c.Name),
		zap.Int("documents", n),
	)
	return rel, nil
}
