package helper

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

var errNoCurrent = errors.New("cursor has no current document")

// MemoryStore 内存版 DocumentStore，用于测试与本地调试
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]bson.D
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]bson.D)}
}

// Insert 追加文档
func (m *MemoryStore) Insert(collection string, docs ...bson.D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[collection] = append(m.docs[collection], docs...)
}

// Dump 与 MongoStore 相同的排序：updateTime 降序，其次 crawlTime 降序，缺失值排在最后
func (m *MemoryStore) Dump(ctx context.Context, collection string) (Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	docs := append([]bson.D(nil), m.docs[collection]...)
	m.mu.Unlock()

	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range dumpSort {
			c := compareNumeric(lookup(docs[i], f.Key), lookup(docs[j], f.Key))
			if c != 0 {
				return c > 0
			}
		}
		return false
	})
	return &memoryCursor{docs: docs, pos: -1}, nil
}

func lookup(doc bson.D, key string) any {
	for _, e := range doc {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// compareNumeric 非数值视为最小
func compareNumeric(a, b any) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

type memoryCursor struct {
	docs []bson.D
	pos  int
}

func (c *memoryCursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil || c.pos+1 >= len(c.docs) {
		c.pos = len(c.docs)
		return false
	}
	c.pos++
	return true
}

// Decode 经过一次 BSON 编解码，行为与真实游标一致
func (c *memoryCursor) Decode(val interface{}) error {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return errNoCurrent
	}
	raw, err := bson.Marshal(c.docs[c.pos])
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, val)
}

func (c *memoryCursor) Err() error { return nil }

func (c *memoryCursor) Close(ctx context.Context) error { return nil }
