package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"ncov-dump/internal/ncov_dump/helper"
)

// IDField 存储层内部主键，不出现在导出文件中
const IDField = "_id"

// StripID 去掉顶层的 _id
func StripID(doc bson.D) bson.D {
	out := doc[:0:0]
	for _, e := range doc {
		if e.Key == IDField {
			continue
		}
		out = append(out, e)
	}
	return out
}

// WriteTimeSeries 把游标中的全部文档按游标顺序写成缩进的 JSON 数组，不重新排序。
// 逐条写出，不把整个集合读进内存。返回写出的文档数。
func WriteTimeSeries(ctx context.Context, w io.Writer, cur helper.Cursor) (int, error) {
	n := 0
	var indented bytes.Buffer
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return n, err
		}
		raw, err := marshalDocument(StripID(doc))
		if err != nil {
			return n, err
		}
		indented.Reset()
		if err := json.Indent(&indented, raw, "    ", "    "); err != nil {
			return n, err
		}

		sep := ",\n    "
		if n == 0 {
			sep = "[\n    "
		}
		if _, err := io.WriteString(w, sep); err != nil {
			return n, err
		}
		if _, err := w.Write(indented.Bytes()); err != nil {
			return n, err
		}
		n++
	}
	if err := cur.Err(); err != nil {
		return n, err
	}

	tail := "\n]"
	if n == 0 {
		tail = "[]"
	}
	_, err := io.WriteString(w, tail)
	return n, err
}

// marshalDocument 紧凑的 relaxed extended JSON。有限的 double 按十进制输出并保留 ".0"，
// 与已发布的历史文件一致 (1580515200000.0 而不是 1.5805152E+12)
func marshalDocument(doc bson.D) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDocument(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeDocument(buf *bytes.Buffer, doc bson.D) error {
	buf.WriteByte('{')
	for i, e := range doc {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalValue(e.Key)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeValue(buf, e.Value); err != nil {
			return fmt.Errorf("field %s: %w", e.Key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case bson.D:
		return writeDocument(buf, x)
	case bson.A:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case float64:
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			buf.WriteString(FormatDouble(x))
			return nil
		}
	}
	raw, err := marshalValue(v)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}

// marshalValue 单个值的 relaxed extended JSON，借助单字段文档取出值部分
func marshalValue(v any) ([]byte, error) {
	raw, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return nil, err
	}
	const prefix = `{"v":`
	if !bytes.HasPrefix(raw, []byte(prefix)) || !bytes.HasSuffix(raw, []byte("}")) {
		return nil, fmt.Errorf("unexpected extended JSON %s", raw)
	}
	return raw[len(prefix) : len(raw)-1], nil
}

// FormatDouble 有限 double 的十进制文本：整数值带 ".0"，很大或很小的值用指数形式
func FormatDouble(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
