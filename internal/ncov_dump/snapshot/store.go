// Package snapshot 保存每个集合最近一次发生变化时的原始数据，仅用于变化检测。
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"ncov-dump/internal/ncov_dump/helper"
	"ncov-dump/internal/ncov_dump/model"
)

var ErrWriteSnapshot = errors.New("failed to write snapshot")

type Store struct {
	Log *zap.Logger
	Dir string // 输出根目录，快照位于 <Dir>/json/<Name>.json
}

func NewStore(log *zap.Logger, dir string) *Store {
	return &Store{Log: log, Dir: dir}
}

// Path 快照文件的绝对路径
func (s *Store) Path(c model.Collection) string {
	return filepath.Join(s.Dir, filepath.FromSlash(c.SnapshotPath()))
}

// Load 读取上一次的快照。文件不存在、不可读或内容损坏都返回 nil，
// 调用方据此把本轮视为已变化。
func (s *Store) Load(c model.Collection) *model.Payload {
	data, err := os.ReadFile(s.Path(c))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.Log.Warn("Failed to read snapshot, treating as absent",
				zap.String("collection", c.Name),
				zap.Error(err),
			)
		}
		return nil
	}
	p, err := model.DecodePayload(bytes.NewReader(data))
	if err != nil {
		s.Log.Warn("Corrupt snapshot, treating as absent",
			zap.String("collection", c.Name),
			zap.Error(err),
		)
		return nil
	}
	return p
}

// Save 覆盖写入快照
func (s *Store) Save(c model.Collection, p *model.Payload) error {
	data, err := p.Encode()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteSnapshot, c.Name, err)
	}
	err = helper.WriteFileAtomic(s.Path(c), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteSnapshot, c.Name, err)
	}
	return nil
}
